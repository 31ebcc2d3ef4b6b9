// Package store provides lead and conversation storage backends for LeadPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindLead(ctx context.Context, participantID string) (*models.LeadRecord, error) {
	query := `SELECT participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup
			  FROM leads WHERE participant_id = $1`

	rec, err := scanLeadRow(s.db.QueryRowContext(ctx, query, participantID))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore FindLead not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore FindLead failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to find lead %s: %w", participantID, err)
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO leads (participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (participant_id) DO UPDATE SET
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
		slog.Error("PostgresStore UpsertLead failed", "error", err, "participantID", rec.ParticipantID)
		return fmt.Errorf("failed to upsert lead %s: %w", rec.ParticipantID, err)
	}
	slog.Debug("PostgresStore UpsertLead succeeded", "participantID", rec.ParticipantID, "status", rec.Status)
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]models.LeadRecord, error) {
	query := `SELECT participant_id, name, phone, service, status, last_contacted, followup_count, stop_followup
			  FROM leads ORDER BY participant_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		slog.Error("PostgresStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("PostgresStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, participantID string) (*models.Conversation, error) {
	query := `SELECT participant_id, messages, created_at, updated_at FROM conversations WHERE participant_id = $1`

	var conv models.Conversation
	var messagesJSON []byte
	err := s.db.QueryRowContext(ctx, query, participantID).Scan(
		&conv.ParticipantID, &messagesJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversation not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to get conversation %s: %w", participantID, err)
	}
	if err := json.Unmarshal(messagesJSON, &conv.Messages); err != nil {
		slog.Error("PostgresStore GetConversation JSON unmarshal failed", "error", err, "participantID", participantID)
		conv.Messages = nil
	}
	return &conv, nil
}

func (s *PostgresStore) SaveConversation(ctx context.Context, conv models.Conversation) error {
	if conv.ParticipantID == "" {
		return models.ErrEmptyParticipantID
	}
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		slog.Error("PostgresStore SaveConversation JSON marshal failed", "error", err, "participantID", conv.ParticipantID)
		return err
	}

	query := `
		INSERT INTO conversations (participant_id, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_id) DO UPDATE SET
			messages   = excluded.messages,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, conv.ParticipantID, messagesJSON, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "participantID", conv.ParticipantID)
		return fmt.Errorf("failed to save conversation %s: %w", conv.ParticipantID, err)
	}
	slog.Debug("PostgresStore SaveConversation succeeded", "participantID", conv.ParticipantID, "messages", len(conv.Messages))
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
