// Package server relays chat messages between connected websocket sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yourusername/duochat/internal/protocol"
)

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrEmptyMessage  = errors.New("message is required")
	ErrTooLong       = errors.New("message is too long")
)

type Options struct {
	MaxMessageLength int
	RoomCapacity     int
}

// Server represents the WebSocket relay
type Server struct {
	hub      *Hub
	rooms    *RoomRegistry
	log      *slog.Logger
	validate *validator.Validate
	opts     Options
}

// NewServer creates the relay. Call Run to start delivering.
func NewServer(log *slog.Logger, opts Options) (*Server, error) {
	rooms, err := NewRoomRegistry(opts.RoomCapacity, log)
	if err != nil {
		return nil, err
	}
	return &Server{
		hub:      NewHub(rooms, log),
		rooms:    rooms,
		log:      log,
		validate: validator.New(),
		opts:     opts,
	}, nil
}

// Run drives the hub until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

func (s *Server) validateChat(payload protocol.ChatPayload) error {
	if s.validate.Var(strings.TrimSpace(payload.Username), "required") != nil {
		return ErrEmptyUsername
	}
	if s.validate.Var(strings.TrimSpace(payload.Message), "required") != nil {
		return ErrEmptyMessage
	}
	if s.validate.Var(payload.Message, fmt.Sprintf("max=%d", s.opts.MaxMessageLength)) != nil {
		return fmt.Errorf("%w (max %d characters)", ErrTooLong, s.opts.MaxMessageLength)
	}
	return nil
}

// Router mounts the websocket endpoint plus two read-only status routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/ws", func(c *gin.Context) {
		s.HandleWebSocket(c.Writer, c.Request)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.hub.Sessions()})
	})

	r.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.rooms.Snapshot())
	})

	_ = r.SetTrustedProxies(nil)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
