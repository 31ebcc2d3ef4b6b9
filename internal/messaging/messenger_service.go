package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// DefaultGraphAPIBaseURL is the Facebook Graph API endpoint for Messenger sends.
const DefaultGraphAPIBaseURL = "https://graph.facebook.com/v19.0"

// MessengerOpts holds configuration options for the Messenger service.
type MessengerOpts struct {
	// PageAccessToken authenticates sends on behalf of the Facebook page.
	PageAccessToken string
	// APIBaseURL overrides the Graph API endpoint (tests point it at a
	// local server).
	APIBaseURL string
	// HTTPTimeout bounds each send request.
	HTTPTimeout time.Duration
}

// MessengerOption defines a configuration option for the Messenger service.
type MessengerOption func(*MessengerOpts)

// WithPageAccessToken sets the Facebook page access token.
func WithPageAccessToken(token string) MessengerOption {
	return func(o *MessengerOpts) { o.PageAccessToken = token }
}

// WithAPIBaseURL overrides the Graph API base URL.
func WithAPIBaseURL(baseURL string) MessengerOption {
	return func(o *MessengerOpts) { o.APIBaseURL = baseURL }
}

// WithHTTPTimeout sets the per-request timeout for Graph API calls.
func WithHTTPTimeout(timeout time.Duration) MessengerOption {
	return func(o *MessengerOpts) { o.HTTPTimeout = timeout }
}

// MessengerService implements Service over the Facebook Messenger Graph API.
// Incoming messages arrive through the webhook and are fed in with
// EnqueueIncoming; outgoing messages are POSTed to the Graph API.
type MessengerService struct {
	pageToken  string
	apiBaseURL string
	httpClient *http.Client

	responses chan models.IncomingMessage
	done      chan struct{}
	mu        sync.RWMutex
	stopped   bool
}

// NewMessengerService creates a Messenger service. A page access token is required.
func NewMessengerService(opts ...MessengerOption) (*MessengerService, error) {
	var cfg MessengerOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewMessengerService invoked", "pageToken_set", cfg.PageAccessToken != "", "apiBaseURL", cfg.APIBaseURL)

	if cfg.PageAccessToken == "" {
		return nil, fmt.Errorf("page access token must be provided")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultGraphAPIBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	return &MessengerService{
		pageToken:  cfg.PageAccessToken,
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		responses:  make(chan models.IncomingMessage, DefaultChannelBufferSize),
		done:       make(chan struct{}),
	}, nil
}

// ValidateAndCanonicalizeRecipient checks a Messenger PSID. PSIDs are opaque
// numeric strings; only trimming and a non-empty check apply.
func (s *MessengerService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := strings.TrimSpace(recipient)
	if canonical == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	return canonical, nil
}

// Start is a no-op: the webhook delivers incoming traffic.
func (s *MessengerService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the responses channel and stops the service.
func (s *MessengerService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.responses)
	}()

	return nil
}

// sendMessageRequest is the Graph API send payload.
type sendMessageRequest struct {
	Recipient     sendRecipient `json:"recipient"`
	Message       sendText      `json:"message"`
	MessagingType string        `json:"messaging_type"`
}

type sendRecipient struct {
	ID string `json:"id"`
}

type sendText struct {
	Text string `json:"text"`
}

// SendMessage delivers a text message to a participant via the Graph API.
func (s *MessengerService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("MessengerService SendMessage validation error", "error", err, "to", to)
		return err
	}

	var payload sendMessageRequest
	payload.Recipient.ID = canonicalTo
	payload.Message.Text = body
	payload.MessagingType = "RESPONSE"

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode send payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", s.apiBaseURL, url.QueryEscape(s.pageToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("MessengerService SendMessage request failed", "error", err, "to", canonicalTo)
		return fmt.Errorf("failed to send message to %s: %w", canonicalTo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		slog.Error("MessengerService SendMessage rejected", "status", resp.StatusCode, "to", canonicalTo, "body", string(respBody))
		return fmt.Errorf("graph API send to %s failed with status %d", canonicalTo, resp.StatusCode)
	}

	slog.Debug("MessengerService message sent", "to", canonicalTo)
	return nil
}

// Responses returns the channel of incoming participant messages.
func (s *MessengerService) Responses() <-chan models.IncomingMessage {
	return s.responses
}

// EnqueueIncoming feeds a webhook-delivered message into the responses
// channel. Messages are dropped with a warning when the channel is blocked,
// so the webhook handler can always return promptly.
func (s *MessengerService) EnqueueIncoming(msg models.IncomingMessage) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("MessengerService dropping inbound message (service stopped)", "participantID", msg.ParticipantID)
		return
	}

	select {
	case s.responses <- msg:
		slog.Debug("MessengerService emitted inbound message", "participantID", msg.ParticipantID, "echo", msg.Echo)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("MessengerService responses channel blocked, dropping message", "participantID", msg.ParticipantID)
	}
}
