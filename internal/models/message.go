package models

import "time"

// IncomingMessage is an inbound event from the messaging platform for one
// participant. Echo marks a webhook notification for a message that the
// business's own human agent sent through the same channel; echo events are
// never answered by the bot and instead open a pause window.
type IncomingMessage struct {
	ParticipantID string    `json:"participant_id"`
	Body          string    `json:"body"`
	Echo          bool      `json:"echo,omitempty"`
	Time          time.Time `json:"time"`
}

// WebhookPayload is the page-event envelope delivered by the messaging
// platform. Events arrive batched: one payload may carry several entries,
// each with several messaging events.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one page entry inside a webhook delivery.
type WebhookEntry struct {
	ID        string         `json:"id"`
	Time      int64          `json:"time"`
	Messaging []WebhookEvent `json:"messaging"`
}

// WebhookEvent is a single messaging event for one sender.
type WebhookEvent struct {
	Sender    WebhookParty    `json:"sender"`
	Recipient WebhookParty    `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *WebhookMessage `json:"message,omitempty"`
}

// WebhookParty identifies one side of a messaging event.
type WebhookParty struct {
	ID string `json:"id"`
}

// WebhookMessage is the message body of a webhook event. IsEcho is set by
// the platform when the event mirrors an outbound message sent by the page
// itself (a human administrator replying through the channel).
type WebhookMessage struct {
	MID    string `json:"mid,omitempty"`
	Text   string `json:"text,omitempty"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// Messages extracts the processable inbound messages from the payload.
// Non-text events (attachments, delivery notices) are skipped; echo events
// are kept and flagged so the conversation controller can open a pause
// window for that participant.
func (p *WebhookPayload) Messages() []IncomingMessage {
	var msgs []IncomingMessage
	for _, entry := range p.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.Text == "" {
				continue
			}
			participantID := event.Sender.ID
			if event.Message.IsEcho {
				// For echoes the sender is the page; the participant whose
				// conversation is being handled is the recipient.
				participantID = event.Recipient.ID
			}
			if participantID == "" {
				continue
			}
			msgs = append(msgs, IncomingMessage{
				ParticipantID: participantID,
				Body:          event.Message.Text,
				Echo:          event.Message.IsEcho,
				// Webhook timestamps arrive as epoch milliseconds.
				Time: time.UnixMilli(event.Timestamp),
			})
		}
	}
	return msgs
}
