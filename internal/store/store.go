// Package store provides lead and conversation storage backends for LeadPipe.
//
// Four backends implement the same Store interface: an in-memory store for
// tests, SQLite for single-node deployments, PostgreSQL for shared
// deployments, and Google Sheets for operators who work their lead list in a
// spreadsheet.
package store

import (
	"context"
	"strings"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// Store is the persistence interface for lead records and conversation
// history. FindLead and GetConversation return (nil, nil) when no row exists
// for the participant.
type Store interface {
	// FindLead looks up the lead record keyed by participant ID.
	FindLead(ctx context.Context, participantID string) (*models.LeadRecord, error)
	// UpsertLead writes the record, creating the row if needed. Empty
	// Name/Phone/Service values never overwrite stored ones; the merged
	// record produced by the reconciler is authoritative for the rest.
	UpsertLead(ctx context.Context, rec models.LeadRecord) error
	// ListLeads returns all lead records.
	ListLeads(ctx context.Context) ([]models.LeadRecord, error)
	// GetConversation returns the stored dialogue history for a participant.
	GetConversation(ctx context.Context, participantID string) (*models.Conversation, error)
	// SaveConversation stores or replaces the dialogue history.
	SaveConversation(ctx context.Context, conv models.Conversation) error
	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	// DSN is the connection string for SQL backends: a file path for
	// SQLite or a postgres:// URL / key-value string for PostgreSQL.
	DSN string
	// SpreadsheetID selects the Google Sheets document for the sheets
	// backend.
	SpreadsheetID string
	// SheetName is the tab leads are written to. Defaults to "Leads".
	SheetName string
	// CredentialsJSON is the Google service account key for the sheets
	// backend.
	CredentialsJSON []byte
}

// Option modifies store configuration.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSpreadsheetID selects the Google Sheets document.
func WithSpreadsheetID(id string) Option {
	return func(o *Opts) { o.SpreadsheetID = id }
}

// WithSheetName selects the tab within the spreadsheet.
func WithSheetName(name string) Option {
	return func(o *Opts) { o.SheetName = name }
}

// WithCredentialsJSON sets the Google service account key.
func WithCredentialsJSON(creds []byte) Option {
	return func(o *Opts) { o.CredentialsJSON = creds }
}

// DetectDSNType determines whether a DSN is for PostgreSQL or SQLite.
// PostgreSQL DSNs use URL schemes or key=value connection strings; anything
// else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// quotePhoneCell prefixes a phone value with an apostrophe so spreadsheet
// software keeps it as literal text instead of parsing it as a number.
func quotePhoneCell(phone string) string {
	if phone == "" {
		return ""
	}
	return "'" + phone
}

// unquotePhoneCell strips the protective apostrophe added by quotePhoneCell.
func unquotePhoneCell(cell string) string {
	return strings.TrimPrefix(cell, "'")
}
