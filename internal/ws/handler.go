package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/transport"
)

// Admitter runs the login handshake on a fresh connection.
type Admitter interface {
	Admit(ctx context.Context, conn transport.Conn) (*participant.Participant, error)
}

// Handler upgrades to a WebSocket and speaks the game line protocol over it,
// one text message per line.
func Handler(a Admitter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}

		p, err := a.Admit(r.Context(), transport.NewWebSocketConn(conn, r.RemoteAddr))
		if err != nil {
			log.Info("admission failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}

		// The connection lives as long as the handler does
		<-p.Done()
	}
}
