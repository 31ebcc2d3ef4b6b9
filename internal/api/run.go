package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/worksmart-ai/leadpipe/internal/conversation"
	"github.com/worksmart-ai/leadpipe/internal/extraction"
	"github.com/worksmart-ai/leadpipe/internal/flow"
	"github.com/worksmart-ai/leadpipe/internal/genai"
	"github.com/worksmart-ai/leadpipe/internal/messaging"
	"github.com/worksmart-ai/leadpipe/internal/store"
)

// Run wires the configured modules together and serves until the context is
// cancelled: GenAI client, extractor, persist queue, conversation flow,
// Messenger delivery and the HTTP API. twilioSvc is optional; when non-nil
// its webhook is mounted and its incoming messages are processed too.
func Run(ctx context.Context, st store.Store, pauses conversation.PauseStore, genaiOpts []genai.Option, messengerOpts []messaging.MessengerOption, flowOpts []flow.Option, apiOpts []Option, twilioSvc *messaging.TwilioService) error {
	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	queue := store.NewPersistQueue(st)
	extractor := extraction.NewExtractor(genaiClient)
	flowCtrl := flow.NewConversationFlow(st, extractor, pauses, genaiClient, queue, flowOpts...)

	msgService, err := messaging.NewMessengerService(messengerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create Messenger service: %w", err)
	}
	defer func() {
		if err := msgService.Stop(); err != nil {
			slog.Error("Run: failed to stop Messenger service", "error", err)
		}
	}()

	go queue.Run(ctx)

	handler := messaging.NewResponseHandler(msgService, flowCtrl, flow.FallbackReply)
	go handler.Start(ctx)

	srv := NewServer(st, flowCtrl, msgService, apiOpts...)

	if twilioSvc != nil {
		slog.Info("Run: Twilio WhatsApp channel enabled")
		twilioHandler := messaging.NewResponseHandler(twilioSvc, flowCtrl, flow.FallbackReply)
		go twilioHandler.Start(ctx)
		srv.twilioWebhook = twilioSvc.TwilioWebhookHandler
		defer func() {
			if err := twilioSvc.Stop(); err != nil {
				slog.Error("Run: failed to stop Twilio service", "error", err)
			}
		}()
	}

	return srv.Run(ctx)
}
