// Package api provides HTTP handlers for LeadPipe endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// webhookHandler routes the Messenger webhook: GET is the verification
// handshake, POST delivers message events.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhook answers the Messenger subscription handshake. A token
// mismatch is the one visible failure this surface has: everything else
// returns 200 so the platform never retries a poison event.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken && s.verifyToken != "" {
		slog.Info("Server.verifyWebhook: webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	slog.Warn("Server.verifyWebhook: verification failed", "mode", mode, "token_match", token == s.verifyToken)
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, "Verification failed")
}

// receiveWebhook accepts a batch of Messenger events, queues each message for
// asynchronous processing and acknowledges immediately.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhook: failed to decode payload", "error", err)
		// Still acknowledge: a malformed event would otherwise be
		// redelivered forever.
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "EVENT_RECEIVED")
		return
	}

	// Only page events carry conversations; other subscription objects are
	// acknowledged and dropped.
	if payload.Object != "page" {
		slog.Debug("Server.receiveWebhook: ignoring non-page object", "object", payload.Object)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "EVENT_RECEIVED")
		return
	}

	msgs := payload.Messages()
	for _, msg := range msgs {
		s.incoming.EnqueueIncoming(msg)
	}
	slog.Debug("Server.receiveWebhook: events queued", "count", len(msgs))

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")
}

// manychatRequest is the ManyChat external-request payload.
type manychatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// manychatHandler processes a message synchronously and returns the bot reply
// in the response body, the shape ManyChat's external request action expects.
func (s *Server) manychatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req manychatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.manychatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" || req.Message == "" {
		slog.Warn("Server.manychatHandler: missing fields", "userID_set", req.UserID != "", "message_set", req.Message != "")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id and message are required"))
		return
	}

	reply, err := s.processor.ProcessMessage(r.Context(), models.IncomingMessage{
		ParticipantID: req.UserID,
		Body:          req.Message,
		Time:          time.Now(),
	})
	if err != nil {
		slog.Error("Server.manychatHandler: processing failed", "userID", req.UserID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.BotReply{Response: reply})
}

// leadsHandler returns all lead records.
func (s *Server) leadsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	leads, err := s.store.ListLeads(r.Context())
	if err != nil {
		slog.Error("Server.leadsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

// homeHandler is the uptime landing route.
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Work Smart AI Bot is Running!")
}

// pingHandler answers uptime monitor keepalives.
func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Pong")
}
