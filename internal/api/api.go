// Package api provides the HTTP surface of LeadPipe: the Messenger webhook
// (verification handshake and event delivery), the ManyChat synchronous
// endpoint, the lead listing endpoint and the keepalive routes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/messaging"
	"github.com/worksmart-ai/leadpipe/internal/models"
	"github.com/worksmart-ai/leadpipe/internal/store"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// IncomingEnqueuer accepts webhook-delivered messages for asynchronous
// processing. MessengerService implements it.
type IncomingEnqueuer interface {
	EnqueueIncoming(msg models.IncomingMessage)
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, for example ":8080".
	Addr string
	// VerifyToken is the shared secret for the Messenger webhook
	// verification handshake.
	VerifyToken string
}

// Option modifies server configuration.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// Server is the LeadPipe HTTP server.
type Server struct {
	addr        string
	verifyToken string

	store     store.Store
	processor messaging.MessageProcessor
	incoming  IncomingEnqueuer

	// twilioWebhook, when set, is mounted at /twilio for WhatsApp
	// deployments.
	twilioWebhook http.HandlerFunc

	httpServer *http.Server
}

// NewServer creates the API server. The processor handles synchronous
// ManyChat requests; the enqueuer receives webhook events for asynchronous
// processing.
func NewServer(st store.Store, processor messaging.MessageProcessor, incoming IncomingEnqueuer, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:        cfg.Addr,
		verifyToken: cfg.VerifyToken,
		store:       st,
		processor:   processor,
		incoming:    incoming,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/manychat", s.manychatHandler)
	mux.HandleFunc("/leads", s.leadsHandler)
	mux.HandleFunc("/ping", s.pingHandler)
	mux.HandleFunc("/", s.homeHandler)
	if s.twilioWebhook != nil {
		mux.HandleFunc("/twilio", s.twilioWebhook)
	}
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
