package followup

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignite/retention-monitor/internal/domain"
)

const (
	// forcedConnectionCall is the call ordinal from which every response is
	// treated as connected: by the fourth attempt the agent has reached
	// somebody or the record needs a substantive reason either way. The rule
	// lives here, not in any UI, so it holds regardless of caller.
	forcedConnectionCall = 4

	// mailConfirmationCall is the call ordinal at which a non-connected
	// outcome requires the agent to state whether the outreach mail went out.
	mailConfirmationCall = 3

	// maxUnresolvedCalls is how many connected-but-unresolved calls get an
	// automatic reminder before the record switches to waiting on the
	// outreach mail instead.
	maxUnresolvedCalls = 3
)

// Rules holds the scheduling knobs of the state machine. The zero value is
// not usable; call DefaultRules or let the service fill defaults.
type Rules struct {
	// FirstReminderOffset is the delay after the first connected-unresolved
	// call before the record is due again.
	FirstReminderOffset time.Duration
	// SecondReminderOffset is the delay after the second one.
	SecondReminderOffset time.Duration
	// OverdueAge is the record age past which an unresolved record counts as
	// overdue on the dashboard.
	OverdueAge time.Duration
}

// DefaultRules returns the production scheduling constants.
func DefaultRules() Rules {
	return Rules{
		FirstReminderOffset:  2 * time.Hour,
		SecondReminderOffset: 48 * time.Hour,
		OverdueAge:           domain.OverdueAge,
	}
}

// CallInput is one submitted call outcome. MailConfirmed is tri-state: nil
// means the agent said nothing about the outreach mail, which is different
// from an explicit "not sent yet" (false).
type CallInput struct {
	Response      domain.CallResponse
	Reason        string
	Notes         string
	MailConfirmed *bool
}

// ApplyCall validates in against rec and, on success, appends the attempt
// and advances the follow-up state in place. On a validation error rec is
// left untouched.
func ApplyCall(rec *domain.ChurnRecord, in CallInput, now time.Time, rules Rules) error {
	if !domain.ValidCallResponse(in.Response) {
		return ErrInvalidCallResponse
	}

	// From the fourth call on, the outcome is treated as connected no matter
	// what the caller submitted. A reason is still mandatory.
	response := in.Response
	if rec.CurrentCallNumber >= forcedConnectionCall {
		response = domain.ResponseConnected
	}

	reason := domain.ParseReason(in.Reason)
	if response == domain.ResponseConnected && reason.Code == domain.ReasonNone {
		return ErrMissingChurnReason
	}

	// Once the sticky flag is set the question is already answered, so the
	// confirmation requirements below only apply to unconfirmed records.
	if !rec.MailSent && in.MailConfirmed == nil {
		if response == domain.ResponseConnected && reason.NeedsCalling() &&
			rec.ConnectedUnresolvedCalls()+1 >= maxUnresolvedCalls {
			// Third unresolved conversation: automatic reminders are
			// exhausted, so the agent must state whether the outreach mail
			// went out.
			return ErrMailConfirmationRequired
		}
		if response != domain.ResponseConnected && rec.CurrentCallNumber == mailConfirmationCall {
			return ErrMailConfirmationRequired
		}
	}

	attempt := domain.CallAttempt{
		ID:         uuid.New().String(),
		RecordID:   rec.ID,
		CallNumber: rec.CurrentCallNumber,
		Timestamp:  now,
		Response:   response,
		Notes:      in.Notes,
	}
	if response == domain.ResponseConnected {
		attempt.Reason = &reason
	}
	rec.CallAttempts = append(rec.CallAttempts, attempt)
	rec.CurrentCallNumber++

	if response != domain.ResponseConnected {
		// Busy / no answer / callback requested: the record is ready for
		// another attempt right away.
		rec.FollowUp = domain.PendingReminder(now)
	} else {
		rec.Reason = reason
		switch {
		case reason.IsTerminal():
			rec.FollowUp = domain.Inactive()
			rec.Status = domain.FollowUpCompleted
		case reason.NeedsCalling():
			rec.Status = domain.FollowUpInProgress
			switch rec.ConnectedUnresolvedCalls() {
			case 1:
				rec.FollowUp = domain.PendingReminder(now.Add(rules.FirstReminderOffset))
			case 2:
				rec.FollowUp = domain.PendingReminder(now.Add(rules.SecondReminderOffset))
			default:
				rec.FollowUp = domain.AwaitingMailConfirmation()
			}
		default:
			// A substantive in-progress reason: the conversation happened, so
			// nothing is scheduled until someone decides otherwise.
			rec.FollowUp = domain.Inactive()
		}
	}

	if in.MailConfirmed != nil && *in.MailConfirmed {
		rec.MailSent = true
	}
	applyMailOverride(rec)

	rec.UpdatedAt = now
	return nil
}

// ApplyMailConfirmation flips the sticky mail flag and re-applies the
// stop-chasing override without recording a call attempt.
func ApplyMailConfirmation(rec *domain.ChurnRecord, now time.Time) {
	rec.MailSent = true
	applyMailOverride(rec)
	rec.UpdatedAt = now
}

// ApplyReasonEdit reclassifies a directly edited reason so the follow-up
// flags stay consistent. A terminal reason closes the record; a non-terminal
// one reopens a completed record but leaves the call schedule alone.
func ApplyReasonEdit(rec *domain.ChurnRecord, rawReason string, now time.Time) {
	reason := domain.ParseReason(rawReason)
	rec.Reason = reason
	if reason.IsTerminal() {
		rec.FollowUp = domain.Inactive()
		rec.Status = domain.FollowUpCompleted
	} else if rec.Status == domain.FollowUpCompleted {
		rec.Status = domain.FollowUpInProgress
	}
	applyMailOverride(rec)
	rec.UpdatedAt = now
}

// applyMailOverride enforces the "stop chasing after outreach" rule: once
// the outreach mail is confirmed and three calls have been recorded, the
// record stays quiet permanently, whatever the reason says.
func applyMailOverride(rec *domain.ChurnRecord) {
	if rec.MailSent && rec.CurrentCallNumber > mailConfirmationCall {
		rec.FollowUp = domain.Inactive()
	}
}
