// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
)

type Config struct {
	GamePort      int
	HTTPAddr      string
	Rules         engine.Rules
	JoinTimeout   time.Duration
	MoveTimeout   time.Duration
	MaxDenials    int
	TurnPause     time.Duration
	LoginAttempts int
	LoginTimeout  time.Duration
	DatabaseURL   string
	LogLevel      string
	LogFormat     string
}

func Default() Config {
	return Config{
		GamePort:      4041,
		HTTPAddr:      ":8080",
		Rules:         engine.DefaultRules(),
		JoinTimeout:   2 * time.Minute,
		MoveTimeout:   60 * time.Second,
		MaxDenials:    5,
		TurnPause:     250 * time.Millisecond,
		LoginAttempts: 3,
		LoginTimeout:  30 * time.Second,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Load never overrides variables that are already set
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, reporting every bad value at once.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	r := reader{lookup: lookup}

	r.integer("GAME_PORT", &cfg.GamePort)
	r.str("HTTP_ADDR", &cfg.HTTPAddr)
	r.integer("DICE", &cfg.Rules.DieFaces)
	r.integer("MAP_LENGTH", &cfg.Rules.TrackLength)
	r.integer("EXIT_FACE", &cfg.Rules.ExitFace)
	r.duration("JOIN_TIMEOUT", &cfg.JoinTimeout)
	r.duration("MOVE_TIMEOUT", &cfg.MoveTimeout)
	r.integer("MAX_DENIALS", &cfg.MaxDenials)
	r.duration("TURN_PAUSE", &cfg.TurnPause)
	r.integer("LOGIN_ATTEMPTS", &cfg.LoginAttempts)
	r.duration("LOGIN_TIMEOUT", &cfg.LoginTimeout)
	r.str("DATABASE_URL", &cfg.DatabaseURL)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.str("LOG_FORMAT", &cfg.LogFormat)

	return cfg, multierr.Append(r.err, cfg.Validate())
}

func (c Config) Validate() error {
	var err error
	if c.GamePort < 1 || c.GamePort > 65535 {
		err = multierr.Append(err, fmt.Errorf("GAME_PORT %d out of range", c.GamePort))
	}
	if c.Rules.DieFaces < 1 {
		err = multierr.Append(err, fmt.Errorf("DICE must be positive, got %d", c.Rules.DieFaces))
	}
	if c.Rules.TrackLength < 1 {
		err = multierr.Append(err, fmt.Errorf("MAP_LENGTH must be positive, got %d", c.Rules.TrackLength))
	}
	if c.Rules.ExitFace < 1 || c.Rules.ExitFace > c.Rules.DieFaces {
		err = multierr.Append(err, fmt.Errorf("EXIT_FACE %d is not a face of a %d sided die", c.Rules.ExitFace, c.Rules.DieFaces))
	}
	if c.Rules.ExitFace > c.Rules.TrackLength {
		err = multierr.Append(err, fmt.Errorf("MAP_LENGTH %d is shorter than EXIT_FACE %d, no piece could leave home", c.Rules.TrackLength, c.Rules.ExitFace))
	}
	for name, d := range map[string]time.Duration{
		"JOIN_TIMEOUT":  c.JoinTimeout,
		"MOVE_TIMEOUT":  c.MoveTimeout,
		"TURN_PAUSE":    c.TurnPause,
		"LOGIN_TIMEOUT": c.LoginTimeout,
	} {
		if d < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.MaxDenials < 0 {
		err = multierr.Append(err, errors.New("MAX_DENIALS must not be negative"))
	}
	if c.LoginAttempts < 0 {
		err = multierr.Append(err, errors.New("LOGIN_ATTEMPTS must not be negative"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("LOG_FORMAT %q is not json or console", c.LogFormat))
	}
	return err
}

func (c Config) GameAddr() string {
	return ":" + strconv.Itoa(c.GamePort)
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = multierr.Append(r.err, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = multierr.Append(r.err, fmt.Errorf("%s: %q is not a duration", key, v))
		return
	}
	*dst = d
}
