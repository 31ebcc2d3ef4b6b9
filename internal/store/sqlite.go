// Package store provides lead and conversation storage backends for LeadPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the parent directory is
// created if it does not exist.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindLead(ctx context.Context, participantID string) (*models.LeadRecord, error) {
	query := `SELECT participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup
			  FROM leads WHERE participant_id = ?`

	rec, err := scanLeadRow(s.db.QueryRowContext(ctx, query, participantID))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore FindLead not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore FindLead failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to find lead %s: %w", participantID, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	// Empty contact fields keep the stored value; status and followup
	// bookkeeping always reflect the merged record.
	query := `
		INSERT INTO leads (participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			name           = CASE WHEN excluded.name = '' THEN leads.name ELSE excluded.name END,
			phone          = CASE WHEN excluded.phone = '' THEN leads.phone ELSE excluded.phone END,
			service        = CASE WHEN excluded.service = '' THEN leads.service ELSE excluded.service END,
			status         = excluded.status,
			last_contacted = excluded.last_contacted,
			followup_count = excluded.followup_count,
			stop_followup  = excluded.stop_followup`

	_, err := s.db.ExecContext(ctx, query, rec.ParticipantID, rec.Name, rec.Phone, rec.Service,
		string(rec.Status), rec.LastContacted, rec.FollowupCount, rec.StopFollowup)
	if err != nil {
		slog.Error("SQLiteStore UpsertLead failed", "error", err, "participantID", rec.ParticipantID)
		return fmt.Errorf("failed to upsert lead %s: %w", rec.ParticipantID, err)
	}
	slog.Debug("SQLiteStore UpsertLead succeeded", "participantID", rec.ParticipantID, "status", rec.Status)
	return nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]models.LeadRecord, error) {
	query := `SELECT participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup
			  FROM leads ORDER BY participant_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		slog.Error("SQLiteStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("SQLiteStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, participantID string) (*models.Conversation, error) {
	query := `SELECT participant_id, messages, created_at, updated_at FROM conversations WHERE participant_id = ?`

	var conv models.Conversation
	var messagesJSON string
	err := s.db.QueryRowContext(ctx, query, participantID).Scan(
		&conv.ParticipantID, &messagesJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversation not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to get conversation %s: %w", participantID, err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		slog.Error("SQLiteStore GetConversation JSON unmarshal failed", "error", err, "participantID", participantID)
		// Corrupt history is recoverable; start the dialogue over.
		conv.Messages = nil
	}
	return &conv, nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, conv models.Conversation) error {
	if conv.ParticipantID == "" {
		return models.ErrEmptyParticipantID
	}
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation JSON marshal failed", "error", err, "participantID", conv.ParticipantID)
		return err
	}

	query := `
		INSERT INTO conversations (participant_id, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			messages   = excluded.messages,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, conv.ParticipantID, string(messagesJSON), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "participantID", conv.ParticipantID)
		return fmt.Errorf("failed to save conversation %s: %w", conv.ParticipantID, err)
	}
	slog.Debug("SQLiteStore SaveConversation succeeded", "participantID", conv.ParticipantID, "messages", len(conv.Messages))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
