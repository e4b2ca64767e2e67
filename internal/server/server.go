// Package server admits game connections: it logs the peer in and hands it
// to the matchmaker.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/auth"
	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/protocol"
	"github.com/DoyleJ11/ludo-backend/internal/transport"
)

var ErrLoginFailed = errors.New("login failed")
var ErrLoginTimeout = errors.New("login timed out")

// Enqueuer receives participants that finished the login handshake.
type Enqueuer interface {
	Enqueue(ctx context.Context, p *participant.Participant) error
}

type Options struct {
	// LoginAttempts caps LOGIN lines per connection. Zero allows any number.
	LoginAttempts int
	// LoginTimeout bounds the whole handshake. Zero waits forever.
	LoginTimeout time.Duration
}

type Server struct {
	auth  *auth.Authenticator
	queue Enqueuer
	opts  Options
	log   *zap.Logger
}

func New(a *auth.Authenticator, queue Enqueuer, opts Options, log *zap.Logger) *Server {
	return &Server{auth: a, queue: queue, opts: opts, log: log}
}

// ServeTCP accepts game connections on ln until ctx is cancelled.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info("game listener up", zap.String("addr", ln.Addr().String()))
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			if _, err := s.Admit(ctx, transport.NewLineConn(c)); err != nil {
				s.log.Info("admission failed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
			}
		}()
	}
}

// Admit runs the login handshake on conn and enqueues the participant. The
// participant owns conn from here on; on error it has already been closed.
func (s *Server) Admit(ctx context.Context, conn transport.Conn) (*participant.Participant, error) {
	p := participant.New(conn, s.log)

	name, release, err := s.login(ctx, p)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.SetName(name)
	go func() {
		<-p.Done()
		release()
	}()
	p.Logger().Info("logged in")

	if err := s.queue.Enqueue(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return p, nil
}

func (s *Server) login(ctx context.Context, p *participant.Participant) (string, func(), error) {
	if s.opts.LoginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.LoginTimeout)
		defer cancel()
	}

	p.Send(protocol.LoginRequest)
	for attempt := 1; ; attempt++ {
		line, err := p.ReceiveLine(ctx)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", nil, ErrLoginTimeout
		case err != nil:
			return "", nil, err
		}

		cmd, err := protocol.Parse(line)
		if err == nil && cmd.Kind == protocol.CmdLogin {
			release, err := s.auth.Authenticate(ctx, cmd.Username, cmd.Password)
			switch {
			case err == nil:
				p.Send(protocol.LoginAccepted)
				return cmd.Username, release, nil
			case !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrAlreadyLoggedIn):
				p.Send(protocol.LoginDenied)
				return "", nil, err
			}
			p.Logger().Debug("login denied", zap.String("username", cmd.Username), zap.Error(err))
		}
		p.Send(protocol.LoginDenied)

		if s.opts.LoginAttempts > 0 && attempt >= s.opts.LoginAttempts {
			return "", nil, ErrLoginFailed
		}
	}
}
