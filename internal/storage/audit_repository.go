package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golfclapp/backoffice/internal/storage/models"
)

// DefaultAuditLimit caps List when no limit is given.
const DefaultAuditLimit = 100

// AuditRepository provides data access for the audit journal.
type AuditRepository struct {
	BaseRepository
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Record appends an entry, filling in its ID and CreatedAt.
func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	entry.ID = GenerateID()
	entry.CreatedAt = r.Now()
	if entry.RangeIDs == nil {
		entry.RangeIDs = []string{}
	}

	ids, err := json.Marshal(entry.RangeIDs)
	if err != nil {
		return fmt.Errorf("encoding range ids: %w", err)
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO audit_entries (id, session_id, action, course_id, range_ids, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.SessionID, entry.Action, entry.CourseID,
		string(ids), entry.Outcome, entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// List returns up to limit entries, newest first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return r.list(ctx, "", limit)
}

// ListByCourse returns up to limit entries of one course, newest first.
func (r *AuditRepository) ListByCourse(ctx context.Context, courseID string, limit int) ([]models.AuditEntry, error) {
	return r.list(ctx, courseID, limit)
}

func (r *AuditRepository) list(ctx context.Context, courseID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	query := `
		SELECT id, session_id, action, course_id, range_ids, outcome, error, created_at
		FROM audit_entries`
	args := []any{}
	if courseID != "" {
		query += ` WHERE course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e   models.AuditEntry
			ids string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Action, &e.CourseID, &ids, &e.Outcome, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &e.RangeIDs); err != nil {
			return nil, fmt.Errorf("decoding range ids of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
