package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
	"github.com/worksmart-ai/leadpipe/internal/twiliowhatsapp"
)

func TestMessengerServiceRequiresToken(t *testing.T) {
	if _, err := NewMessengerService(); err == nil {
		t.Fatal("expected error without page access token")
	}
}

func TestMessengerServiceSendMessage(t *testing.T) {
	var gotPath, gotToken string
	var gotPayload sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, err := NewMessengerService(
		WithPageAccessToken("page-token"),
		WithAPIBaseURL(server.URL),
	)
	if err != nil {
		t.Fatalf("NewMessengerService: %v", err)
	}

	if err := svc.SendMessage(context.Background(), "psid-123", "hello there"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/me/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotToken != "page-token" {
		t.Errorf("token = %q", gotToken)
	}
	if gotPayload.Recipient.ID != "psid-123" || gotPayload.Message.Text != "hello there" {
		t.Errorf("payload = %+v", gotPayload)
	}
	if gotPayload.MessagingType != "RESPONSE" {
		t.Errorf("messaging type = %q", gotPayload.MessagingType)
	}
}

func TestMessengerServiceSendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	svc, err := NewMessengerService(WithPageAccessToken("bad"), WithAPIBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewMessengerService: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "psid-123", "hi"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestMessengerServiceStoppedSend(t *testing.T) {
	svc, err := NewMessengerService(WithPageAccessToken("token"))
	if err != nil {
		t.Fatalf("NewMessengerService: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "psid-123", "hi"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestMessengerServiceEnqueueIncoming(t *testing.T) {
	svc, err := NewMessengerService(WithPageAccessToken("token"))
	if err != nil {
		t.Fatalf("NewMessengerService: %v", err)
	}

	msg := models.IncomingMessage{ParticipantID: "psid-123", Body: "hello", Time: time.Now()}
	svc.EnqueueIncoming(msg)

	select {
	case got := <-svc.Responses():
		if got.ParticipantID != "psid-123" || got.Body != "hello" {
			t.Errorf("unexpected message: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueued message never arrived on responses channel")
	}
}

func TestTwilioServiceValidateRecipient(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	got, err := svc.ValidateAndCanonicalizeRecipient("+95 9 123 456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "959123456" {
		t.Errorf("canonical = %q", got)
	}

	if _, err := svc.ValidateAndCanonicalizeRecipient("123"); err == nil {
		t.Error("expected error for too-short number")
	}
	if _, err := svc.ValidateAndCanonicalizeRecipient(""); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestTwilioWebhookHandler(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	form := url.Values{"From": {"whatsapp:+959123456"}, "Body": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, "/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	svc.TwilioWebhookHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case got := <-svc.Responses():
		if got.ParticipantID != "whatsapp:+959123456" || got.Body != "hello" {
			t.Errorf("unexpected message: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook message never arrived on responses channel")
	}
}

// recordingProcessor is a MessageProcessor stub for handler tests.
type recordingProcessor struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	seen    []models.IncomingMessage
}

func (p *recordingProcessor) ProcessMessage(_ context.Context, msg models.IncomingMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, msg)
	if p.err != nil {
		return "", p.err
	}
	return p.replies[msg.ParticipantID], nil
}

// stubService is a Service stub with an externally fed responses channel.
type stubService struct {
	responses chan models.IncomingMessage
	mu        sync.Mutex
	sent      []twiliowhatsapp.SentMessage
}

func newStubService() *stubService {
	return &stubService{responses: make(chan models.IncomingMessage, 10)}
}

func (s *stubService) ValidateAndCanonicalizeRecipient(r string) (string, error) { return r, nil }
func (s *stubService) Start(context.Context) error                               { return nil }
func (s *stubService) Stop() error                                               { return nil }
func (s *stubService) Responses() <-chan models.IncomingMessage                  { return s.responses }

func (s *stubService) SendMessage(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, twiliowhatsapp.SentMessage{To: to, Body: body})
	return nil
}

func (s *stubService) sentMessages() []twiliowhatsapp.SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]twiliowhatsapp.SentMessage(nil), s.sent...)
}

func TestResponseHandlerSendsReply(t *testing.T) {
	svc := newStubService()
	proc := &recordingProcessor{replies: map[string]string{"p1": "hi Aye"}}
	handler := NewResponseHandler(svc, proc, "")

	done := make(chan struct{})
	go func() {
		handler.Start(context.Background())
		close(done)
	}()

	svc.responses <- models.IncomingMessage{ParticipantID: "p1", Body: "hello"}
	close(svc.responses)
	<-done

	sent := svc.sentMessages()
	if len(sent) != 1 || sent[0].To != "p1" || sent[0].Body != "hi Aye" {
		t.Errorf("unexpected sends: %+v", sent)
	}
}

func TestResponseHandlerSilentOnEmptyReply(t *testing.T) {
	svc := newStubService()
	proc := &recordingProcessor{replies: map[string]string{}}
	handler := NewResponseHandler(svc, proc, "")

	done := make(chan struct{})
	go func() {
		handler.Start(context.Background())
		close(done)
	}()

	svc.responses <- models.IncomingMessage{ParticipantID: "p1", Body: "hello", Echo: true}
	close(svc.responses)
	<-done

	if sent := svc.sentMessages(); len(sent) != 0 {
		t.Errorf("expected silence, got %+v", sent)
	}
}

func TestResponseHandlerFallbackOnError(t *testing.T) {
	svc := newStubService()
	proc := &recordingProcessor{err: errors.New("model unavailable")}
	handler := NewResponseHandler(svc, proc, "sorry, please try again")

	done := make(chan struct{})
	go func() {
		handler.Start(context.Background())
		close(done)
	}()

	svc.responses <- models.IncomingMessage{ParticipantID: "p1", Body: "hello"}
	close(svc.responses)
	<-done

	sent := svc.sentMessages()
	if len(sent) != 1 || sent[0].Body != "sorry, please try again" {
		t.Errorf("expected fallback reply, got %+v", sent)
	}
}
