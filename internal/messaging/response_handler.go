package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// MessageProcessor turns one incoming participant message into a reply. An
// empty reply with a nil error means stay silent (echoes, pause windows).
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg models.IncomingMessage) (string, error)
}

// ResponseHandler consumes the messaging service's incoming channel and runs
// each message through the processor on its own goroutine, so one slow
// conversation never blocks another participant.
type ResponseHandler struct {
	service   Service
	processor MessageProcessor

	// fallbackReply is sent when processing fails outright. Empty disables
	// the fallback.
	fallbackReply string

	wg sync.WaitGroup
}

// NewResponseHandler creates a handler wiring the service to the processor.
func NewResponseHandler(service Service, processor MessageProcessor, fallbackReply string) *ResponseHandler {
	return &ResponseHandler{
		service:       service,
		processor:     processor,
		fallbackReply: fallbackReply,
	}
}

// Start consumes incoming messages until the channel closes or the context is
// cancelled. It blocks; run it on its own goroutine.
func (h *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler.Start: consuming incoming messages")
	for {
		select {
		case <-ctx.Done():
			slog.Info("ResponseHandler.Start: context cancelled")
			h.wg.Wait()
			return
		case msg, ok := <-h.service.Responses():
			if !ok {
				slog.Info("ResponseHandler.Start: responses channel closed")
				h.wg.Wait()
				return
			}
			h.wg.Add(1)
			go func(msg models.IncomingMessage) {
				defer h.wg.Done()
				h.handle(ctx, msg)
			}(msg)
		}
	}
}

func (h *ResponseHandler) handle(ctx context.Context, msg models.IncomingMessage) {
	reply, err := h.processor.ProcessMessage(ctx, msg)
	if err != nil {
		slog.Error("ResponseHandler.handle: processing failed", "participantID", msg.ParticipantID, "error", err)
		if reply == "" {
			reply = h.fallbackReply
		}
	}
	if reply == "" {
		return
	}
	if err := h.service.SendMessage(ctx, msg.ParticipantID, reply); err != nil {
		slog.Error("ResponseHandler.handle: send failed", "participantID", msg.ParticipantID, "error", err)
	}
}
