package store

import (
	"database/sql"
	"fmt"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// scanLead scans a LeadRecord from sql.Rows.
func scanLead(rows *sql.Rows) (models.LeadRecord, error) {
	var rec models.LeadRecord
	var status string
	var lastContacted sql.NullTime
	err := rows.Scan(
		&rec.ParticipantID, &rec.Name, &rec.Phone, &rec.Service,
		&status, &lastContacted, &rec.FollowupCount, &rec.StopFollowup,
	)
	if err != nil {
		return rec, fmt.Errorf("scan lead failed: %w", err)
	}
	rec.Status = models.LeadStatus(status)
	if lastContacted.Valid {
		rec.LastContacted = lastContacted.Time
	}
	return rec, nil
}

// scanLeadRow scans a LeadRecord from a single sql.Row.
func scanLeadRow(row *sql.Row) (models.LeadRecord, error) {
	var rec models.LeadRecord
	var status string
	var lastContacted sql.NullTime
	err := row.Scan(
		&rec.ParticipantID, &rec.Name, &rec.Phone, &rec.Service,
		&status, &lastContacted, &rec.FollowupCount, &rec.StopFollowup,
	)
	if err != nil {
		return rec, err
	}
	rec.Status = models.LeadStatus(status)
	if lastContacted.Valid {
		rec.LastContacted = lastContacted.Time
	}
	return rec, nil
}
