package domain

import (
	"time"
)

// CallResponse enumerates the possible outcomes of a single retention call.
type CallResponse string

const (
	ResponseBusy              CallResponse = "busy"
	ResponseRequestedCallback CallResponse = "requested_callback"
	ResponseNoAnswer          CallResponse = "no_answer"
	ResponseConnected         CallResponse = "connected"
)

// ValidCallResponse reports whether r is one of the fixed response values.
func ValidCallResponse(r CallResponse) bool {
	switch r {
	case ResponseBusy, ResponseRequestedCallback, ResponseNoAnswer, ResponseConnected:
		return true
	}
	return false
}

// FollowUpStatus tracks whether a record's chase is still open.
type FollowUpStatus string

const (
	FollowUpInProgress FollowUpStatus = "in_progress"
	FollowUpCompleted  FollowUpStatus = "completed"
)

// FollowUpPhase is the tag of the follow-up scheduling state. The three
// phases make the invalid combination "active with no reminder and no
// pending mail confirmation" unrepresentable.
type FollowUpPhase string

const (
	// PhaseInactive means nobody needs to chase this record right now.
	PhaseInactive FollowUpPhase = "inactive"
	// PhasePendingReminder means the record becomes callable at ReminderAt.
	// A reminder at (or before) the present moment means "ready immediately".
	PhasePendingReminder FollowUpPhase = "pending_reminder"
	// PhaseAwaitingMailConfirmation means calling is exhausted and the record
	// stays active until an outreach-mail confirmation is recorded.
	PhaseAwaitingMailConfirmation FollowUpPhase = "awaiting_mail_confirmation"
)

// FollowUpState is the tagged scheduling state of a record. ReminderAt is
// set if and only if Phase is PhasePendingReminder.
type FollowUpState struct {
	Phase      FollowUpPhase `json:"phase" db:"follow_up_phase"`
	ReminderAt *time.Time    `json:"reminder_at,omitempty" db:"next_reminder_at"`
}

// Inactive returns the terminal "no chasing" state.
func Inactive() FollowUpState {
	return FollowUpState{Phase: PhaseInactive}
}

// PendingReminder returns an active state that becomes due at t.
func PendingReminder(t time.Time) FollowUpState {
	return FollowUpState{Phase: PhasePendingReminder, ReminderAt: &t}
}

// AwaitingMailConfirmation returns the active, reminder-less state entered
// after the third unresolved connected call.
func AwaitingMailConfirmation() FollowUpState {
	return FollowUpState{Phase: PhaseAwaitingMailConfirmation}
}

// Active reports whether the record still needs chasing.
func (s FollowUpState) Active() bool {
	return s.Phase != PhaseInactive
}

// DueAt reports whether the record should surface in "due" lists at now:
// the record is active and either carries no reminder or the reminder has
// passed. Reminders fire on query, never on a timer.
func (s FollowUpState) DueAt(now time.Time) bool {
	if !s.Active() {
		return false
	}
	return s.ReminderAt == nil || !s.ReminderAt.After(now)
}

// CallAttempt is the immutable record of one call. Attempts are append-only;
// no attempt is ever edited or removed.
type CallAttempt struct {
	ID         string       `json:"id" db:"id"`
	RecordID   string       `json:"record_id" db:"record_id"`
	CallNumber int          `json:"call_number" db:"call_number"`
	Timestamp  time.Time    `json:"timestamp" db:"called_at"`
	Response   CallResponse `json:"response" db:"response"`
	// Reason is set only when Response is ResponseConnected.
	Reason *ChurnReason `json:"churn_reason,omitempty" db:"churn_reason"`
	Notes  string       `json:"notes,omitempty" db:"notes"`
}

// ChurnRecord is one customer/location flagged as at risk of churn.
//
// Invariants:
//   - len(CallAttempts) == CurrentCallNumber - 1
//   - a terminal Reason implies FollowUp is inactive with no reminder
//   - FollowUp.ReminderAt, when present, came from the last connected call
//     with an unresolved reason
type ChurnRecord struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Reason ChurnReason `json:"churn_reason" db:"churn_reason"`

	// MailSent is the sticky outreach-mail confirmation flag. Once true it
	// never flips back.
	MailSent bool `json:"mail_sent_confirmation" db:"mail_sent"`

	Status   FollowUpStatus `json:"follow_up_status" db:"follow_up_status"`
	FollowUp FollowUpState  `json:"follow_up"`

	// CurrentCallNumber is the ordinal of the NEXT call to be recorded,
	// starting at 1 for a fresh record.
	CurrentCallNumber int `json:"current_call_number" db:"current_call_number"`

	CallAttempts []CallAttempt `json:"call_attempts"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Version is bumped on every persisted write and backs the store's
	// optimistic concurrency check.
	Version int `json:"-" db:"version"`
}

// ConnectedUnresolvedCalls counts the recorded connected calls whose reason
// still needed calling. The reminder ladder (+2h, +48h, none) is indexed by
// this count.
func (r *ChurnRecord) ConnectedUnresolvedCalls() int {
	n := 0
	for _, a := range r.CallAttempts {
		if a.Response == ResponseConnected && a.Reason != nil && a.Reason.NeedsCalling() {
			n++
		}
	}
	return n
}
