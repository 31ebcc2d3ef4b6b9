// Package store provides lead and conversation storage backends for LeadPipe.
//
// This file implements the Google Sheets backed store. The sheet is the
// operator-facing lead list: one row per participant, columns
// participant_id, name, phone, service, status, last_contacted,
// followup_count, stop_followup.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

const (
	// DefaultSheetName is the tab used when no sheet name is configured.
	DefaultSheetName = "Leads"
	// sheetTimeLayout is the human-readable timestamp format used in the
	// last_contacted column.
	sheetTimeLayout = "2006-01-02 15:04:05"
	// leadColumnSpan covers columns A through H of a lead row.
	leadColumnSpan = "A:H"
	// leadHeaderRows is the number of header rows above the first lead.
	leadHeaderRows = 1
)

// SheetsStore persists leads to a Google Sheets spreadsheet. Conversation
// history is kept in memory only; the sheet is for the sales team, not the
// bot's dialogue context.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string

	// Sheets has no row-level upsert, so find-then-write must be serialized.
	mu            sync.Mutex
	conversations *InMemoryStore
}

// NewSheetsStore creates a Google Sheets backed store. Requires a spreadsheet
// ID and service account credentials via options.
func NewSheetsStore(ctx context.Context, opts ...Option) (*SheetsStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSheetsStore invoked", "spreadsheetID_set", cfg.SpreadsheetID != "", "credentials_set", len(cfg.CredentialsJSON) > 0)

	if cfg.SpreadsheetID == "" {
		slog.Error("SheetsStore spreadsheet ID not set")
		return nil, fmt.Errorf("spreadsheet ID not set")
	}
	if len(cfg.CredentialsJSON) == 0 {
		slog.Error("SheetsStore credentials not set")
		return nil, fmt.Errorf("sheets credentials not set")
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		slog.Error("Failed to create Sheets service", "error", err)
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		conversations: NewInMemoryStore(),
	}, nil
}

func (s *SheetsStore) FindLead(ctx context.Context, participantID string) (*models.LeadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, _, err := s.findLeadRow(ctx, participantID)
	return rec, err
}

// findLeadRow scans column A for the participant and returns the decoded
// record plus its 1-based sheet row, or (nil, 0, nil) when absent.
// Caller must hold s.mu.
func (s *SheetsStore) findLeadRow(ctx context.Context, participantID string) (*models.LeadRecord, int, error) {
	readRange := fmt.Sprintf("%s!%s", s.sheetName, leadColumnSpan)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		slog.Error("SheetsStore findLeadRow read failed", "error", err, "participantID", participantID)
		return nil, 0, fmt.Errorf("failed to read lead sheet: %w", err)
	}
	for i, row := range resp.Values {
		if i < leadHeaderRows || len(row) == 0 {
			continue
		}
		if cellString(row, 0) != participantID {
			continue
		}
		rec := leadFromRow(row)
		return &rec, i + 1, nil
	}
	slog.Debug("SheetsStore findLeadRow not found", "participantID", participantID)
	return nil, 0, nil
}

func (s *SheetsStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, rowIndex, err := s.findLeadRow(ctx, rec.ParticipantID)
	if err != nil {
		return err
	}
	if existing != nil {
		if rec.Name == "" {
			rec.Name = existing.Name
		}
		if rec.Phone == "" {
			rec.Phone = existing.Phone
		}
		if rec.Service == "" {
			rec.Service = existing.Service
		}
	}

	values := &sheets.ValueRange{Values: [][]interface{}{leadToRow(rec)}}
	if rowIndex > 0 {
		writeRange := fmt.Sprintf("%s!A%d:H%d", s.sheetName, rowIndex, rowIndex)
		// RAW keeps the quoted phone cell as literal text.
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, values).
			ValueInputOption("RAW").Context(ctx).Do()
	} else {
		appendRange := fmt.Sprintf("%s!%s", s.sheetName, leadColumnSpan)
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, appendRange, values).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	}
	if err != nil {
		slog.Error("SheetsStore UpsertLead write failed", "error", err, "participantID", rec.ParticipantID)
		return fmt.Errorf("failed to write lead %s: %w", rec.ParticipantID, err)
	}
	slog.Debug("SheetsStore UpsertLead succeeded", "participantID", rec.ParticipantID, "created", rowIndex == 0)
	return nil
}

func (s *SheetsStore) ListLeads(ctx context.Context) ([]models.LeadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readRange := fmt.Sprintf("%s!%s", s.sheetName, leadColumnSpan)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		slog.Error("SheetsStore ListLeads read failed", "error", err)
		return nil, fmt.Errorf("failed to read lead sheet: %w", err)
	}

	var leads []models.LeadRecord
	for i, row := range resp.Values {
		if i < leadHeaderRows || len(row) == 0 || cellString(row, 0) == "" {
			continue
		}
		leads = append(leads, leadFromRow(row))
	}
	slog.Debug("SheetsStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

func (s *SheetsStore) GetConversation(ctx context.Context, participantID string) (*models.Conversation, error) {
	return s.conversations.GetConversation(ctx, participantID)
}

func (s *SheetsStore) SaveConversation(ctx context.Context, conv models.Conversation) error {
	return s.conversations.SaveConversation(ctx, conv)
}

func (s *SheetsStore) Close() error {
	return nil
}

// leadToRow encodes a record as one sheet row in column order.
func leadToRow(rec models.LeadRecord) []interface{} {
	lastContacted := ""
	if !rec.LastContacted.IsZero() {
		lastContacted = rec.LastContacted.UTC().Format(sheetTimeLayout)
	}
	return []interface{}{
		rec.ParticipantID,
		rec.Name,
		quotePhoneCell(rec.Phone),
		rec.Service,
		string(rec.Status),
		lastContacted,
		strconv.Itoa(rec.FollowupCount),
		strconv.FormatBool(rec.StopFollowup),
	}
}

// leadFromRow decodes one sheet row; malformed cells degrade to zero values.
func leadFromRow(row []interface{}) models.LeadRecord {
	rec := models.LeadRecord{
		ParticipantID: cellString(row, 0),
		Name:          cellString(row, 1),
		Phone:         unquotePhoneCell(cellString(row, 2)),
		Service:       cellString(row, 3),
		Status:        models.LeadStatus(cellString(row, 4)),
	}
	if ts := cellString(row, 5); ts != "" {
		if t, err := time.Parse(sheetTimeLayout, ts); err == nil {
			rec.LastContacted = t
		}
	}
	if n := cellString(row, 6); n != "" {
		if count, err := strconv.Atoi(n); err == nil {
			rec.FollowupCount = count
		}
	}
	rec.StopFollowup = strings.EqualFold(cellString(row, 7), "true")
	return rec
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return strings.TrimSpace(s)
}
