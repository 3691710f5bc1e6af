package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/retention-monitor/internal/domain"
	"github.com/ignite/retention-monitor/internal/service/followup"
)

// ChurnRecordRepo implements followup.Repository against PostgreSQL.
//
// Records live in churn_records; the call history is an append-only
// churn_call_attempts table (no UPDATE or DELETE ever touches it). Writes
// are optimistic: every record row carries a version that must match on
// update, otherwise the write lost a race and the caller gets ErrConflict.
type ChurnRecordRepo struct{ db *sql.DB }

// NewChurnRecordRepo creates a Postgres-backed churn record repository.
func NewChurnRecordRepo(db *sql.DB) *ChurnRecordRepo { return &ChurnRecordRepo{db: db} }

const recordColumns = `id, created_at, churn_reason_code, COALESCE(churn_reason_text,''),
       mail_sent, follow_up_status, follow_up_phase, next_reminder_at,
       current_call_number, updated_at, version`

func (r *ChurnRecordRepo) Get(ctx context.Context, id string) (*domain.ChurnRecord, error) {
	rec, err := r.getRecord(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	attempts, err := r.loadAttempts(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	rec.CallAttempts = attempts[id]
	return rec, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *ChurnRecordRepo) getRecord(ctx context.Context, q queryRower, id string) (*domain.ChurnRecord, error) {
	rec := &domain.ChurnRecord{}
	var reasonCode, phase string
	var reminderAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM churn_records
		WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.CreatedAt, &reasonCode, &rec.Reason.Text,
		&rec.MailSent, &rec.Status, &phase, &reminderAt,
		&rec.CurrentCallNumber, &rec.UpdatedAt, &rec.Version,
	)
	if err == sql.ErrNoRows {
		return nil, followup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get churn record: %w", err)
	}
	rec.Reason.Code = domain.ReasonCode(reasonCode)
	rec.FollowUp = unpackState(phase, reminderAt)
	return rec, nil
}

func (r *ChurnRecordRepo) Update(ctx context.Context, id string, mutate func(*domain.ChurnRecord) error) (*domain.ChurnRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	rec, err := r.getRecord(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	attempts, err := r.loadAttempts(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	rec.CallAttempts = attempts[id]

	prevVersion := rec.Version
	prevAttempts := len(rec.CallAttempts)

	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.Version = prevVersion + 1

	var reminderAt interface{}
	if rec.FollowUp.ReminderAt != nil {
		reminderAt = *rec.FollowUp.ReminderAt
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE churn_records
		SET churn_reason_code = $1, churn_reason_text = $2, mail_sent = $3,
		    follow_up_status = $4, follow_up_phase = $5, next_reminder_at = $6,
		    current_call_number = $7, updated_at = $8, version = $9
		WHERE id = $10 AND version = $11
	`, string(rec.Reason.Code), rec.Reason.Text, rec.MailSent,
		string(rec.Status), string(rec.FollowUp.Phase), reminderAt,
		rec.CurrentCallNumber, rec.UpdatedAt, rec.Version,
		id, prevVersion)
	if err != nil {
		return nil, fmt.Errorf("update churn record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row existed a moment ago, so the version moved underneath us.
		return nil, followup.ErrConflict
	}

	// History is append-only: persist exactly the attempts the mutator added.
	for _, a := range rec.CallAttempts[prevAttempts:] {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		var reasonCode, reasonText interface{}
		if a.Reason != nil {
			reasonCode = string(a.Reason.Code)
			reasonText = a.Reason.Text
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO churn_call_attempts
				(id, record_id, call_number, called_at, response, reason_code, reason_text, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, id, a.CallNumber, a.Timestamp, string(a.Response), reasonCode, reasonText, a.Notes); err != nil {
			return nil, fmt.Errorf("append call attempt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

func (r *ChurnRecordRepo) Query(ctx context.Context, f followup.QueryFilter) ([]domain.ChurnRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM churn_records`
	args := []interface{}{}
	idx := 1
	if f.ActiveOnly {
		q += fmt.Sprintf(" WHERE follow_up_phase <> $%d", idx)
		args = append(args, string(domain.PhaseInactive))
		idx++
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query churn records: %w", err)
	}
	defer rows.Close()

	var out []domain.ChurnRecord
	var ids []string
	for rows.Next() {
		var rec domain.ChurnRecord
		var reasonCode, phase string
		var reminderAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &reasonCode, &rec.Reason.Text,
			&rec.MailSent, &rec.Status, &phase, &reminderAt,
			&rec.CurrentCallNumber, &rec.UpdatedAt, &rec.Version,
		); err != nil {
			return nil, fmt.Errorf("scan churn record: %w", err)
		}
		rec.Reason.Code = domain.ReasonCode(reasonCode)
		rec.FollowUp = unpackState(phase, reminderAt)
		out = append(out, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate churn records: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	attempts, err := r.loadAttempts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CallAttempts = attempts[out[i].ID]
	}
	return out, nil
}

// loadAttempts fetches the call history for a batch of records, ordered by
// call number within each record.
func (r *ChurnRecordRepo) loadAttempts(ctx context.Context, ids []string) (map[string][]domain.CallAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, record_id, call_number, called_at, response,
		       COALESCE(reason_code,''), COALESCE(reason_text,''), COALESCE(notes,'')
		FROM churn_call_attempts
		WHERE record_id = ANY($1)
		ORDER BY record_id, call_number
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load call attempts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.CallAttempt, len(ids))
	for rows.Next() {
		var a domain.CallAttempt
		var reasonCode, reasonText string
		if err := rows.Scan(
			&a.ID, &a.RecordID, &a.CallNumber, &a.Timestamp, &a.Response,
			&reasonCode, &reasonText, &a.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan call attempt: %w", err)
		}
		if a.Response == domain.ResponseConnected {
			a.Reason = &domain.ChurnReason{Code: domain.ReasonCode(reasonCode), Text: reasonText}
		}
		out[a.RecordID] = append(out[a.RecordID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call attempts: %w", err)
	}
	return out, nil
}

func unpackState(phase string, reminderAt sql.NullTime) domain.FollowUpState {
	switch domain.FollowUpPhase(phase) {
	case domain.PhasePendingReminder:
		var at time.Time
		if reminderAt.Valid {
			at = reminderAt.Time
		}
		return domain.PendingReminder(at)
	case domain.PhaseAwaitingMailConfirmation:
		return domain.AwaitingMailConfirmation()
	default:
		return domain.Inactive()
	}
}
