package models

import (
	"testing"
	"time"
)

func TestParseLeadStatus(t *testing.T) {
	cases := []struct {
		raw    string
		want   LeadStatus
		wantOK bool
	}{
		{"New", LeadStatusNew, true},
		{"interested", LeadStatusInterested, true},
		{"Not Interested", LeadStatusNotInterested, true},
		{"not_interested", LeadStatusNotInterested, true},
		{"CLOSED", LeadStatusClosed, true},
		{"  Interested  ", LeadStatusInterested, true},
		{"maybe", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseLeadStatus(c.raw)
		if ok != c.wantOK || got != c.want {
			t.Errorf("ParseLeadStatus(%q) = (%q, %v), want (%q, %v)", c.raw, got, ok, c.want, c.wantOK)
		}
	}
}

func TestLeadRecordHasRequiredFields(t *testing.T) {
	r := LeadRecord{ParticipantID: "p1"}
	if r.HasRequiredFields() {
		t.Error("expected missing required fields on empty record")
	}
	r.Name = "Aye"
	if r.HasRequiredFields() {
		t.Error("expected missing required fields with name only")
	}
	r.Phone = "09123456"
	if !r.HasRequiredFields() {
		t.Error("expected required fields satisfied with name and phone")
	}
}

func TestLeadRecordServiceContains(t *testing.T) {
	r := LeadRecord{Service: "AI Sales Content, Design Class"}
	if !r.ServiceContains("design class") {
		t.Error("expected case-insensitive service match")
	}
	if r.ServiceContains("Auto Bot") {
		t.Error("did not expect match for absent service")
	}
	if r.ServiceContains("") {
		t.Error("empty service string must never match")
	}
}

func TestLeadPatchIsEmpty(t *testing.T) {
	if !(LeadPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if !(LeadPatch{EditIntent: true}).IsEmpty() {
		t.Error("edit intent alone should still be an empty patch")
	}
	if (LeadPatch{Phone: "09123"}).IsEmpty() {
		t.Error("patch with phone should not be empty")
	}
	if (LeadPatch{StopFollowup: true}).IsEmpty() {
		t.Error("stop-followup patch should not be empty")
	}
}

func TestWebhookPayloadMessages(t *testing.T) {
	payload := WebhookPayload{
		Object: "page",
		Entry: []WebhookEntry{
			{
				Messaging: []WebhookEvent{
					{
						Sender:    WebhookParty{ID: "user-1"},
						Recipient: WebhookParty{ID: "page-1"},
						Timestamp: 1000,
						Message:   &WebhookMessage{Text: "hello"},
					},
					{
						// Echo of an admin reply: sender is the page.
						Sender:    WebhookParty{ID: "page-1"},
						Recipient: WebhookParty{ID: "user-1"},
						Timestamp: 2000,
						Message:   &WebhookMessage{Text: "admin says hi", IsEcho: true},
					},
					{
						// Delivery notice without a message body is skipped.
						Sender:    WebhookParty{ID: "user-2"},
						Timestamp: 3000,
					},
				},
			},
		},
	}

	msgs := payload.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ParticipantID != "user-1" || msgs[0].Echo {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if !msgs[0].Time.Equal(time.UnixMilli(1000)) {
		t.Errorf("epoch-millis timestamp not converted: %v", msgs[0].Time)
	}
	if !msgs[1].Echo {
		t.Error("expected second message to be flagged as echo")
	}
	if msgs[1].ParticipantID != "user-1" {
		t.Errorf("echo event must be attributed to the participant, got %q", msgs[1].ParticipantID)
	}
}

func TestLeadRecordValidate(t *testing.T) {
	r := LeadRecord{}
	if err := r.Validate(); err != ErrEmptyParticipantID {
		t.Errorf("expected ErrEmptyParticipantID, got %v", err)
	}
	r = LeadRecord{ParticipantID: "p1", Status: LeadStatusNew, LastContacted: time.Now()}
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
