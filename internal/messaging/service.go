// Package messaging provides the pluggable message delivery abstraction for
// LeadPipe: Facebook Messenger via the Graph API for the main channel and
// Twilio for WhatsApp deployments.
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// Channel and timeout defaults shared by service implementations.
const (
	// DefaultChannelBufferSize bounds the incoming message channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout is how long an emit waits before dropping.
	DefaultChannelTimeout = 5 * time.Second
)

// ErrServiceStopped is returned when an operation is attempted on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// Service defines a pluggable message delivery abstraction. It supports
// sending messages and exposes a channel of incoming participant messages.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier. Each service implements its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming participant messages.
	Responses() <-chan models.IncomingMessage
}
