package followup_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ignite/retention-monitor/internal/domain"
	"github.com/ignite/retention-monitor/internal/service/followup"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newRecord() *domain.ChurnRecord {
	return &domain.ChurnRecord{
		ID:                "R1",
		CreatedAt:         t0.Add(-4 * 24 * time.Hour),
		Status:            domain.FollowUpInProgress,
		FollowUp:          domain.Inactive(),
		CurrentCallNumber: 1,
	}
}

func boolPtr(b bool) *bool { return &b }

func mustApply(t *testing.T, rec *domain.ChurnRecord, in followup.CallInput, now time.Time) {
	t.Helper()
	if err := followup.ApplyCall(rec, in, now, followup.DefaultRules()); err != nil {
		t.Fatalf("ApplyCall(%+v): %v", in, err)
	}
}

// checkHistoryInvariant asserts the record's two call counters stayed in
// sync: the history length always equals the next ordinal minus one.
func checkHistoryInvariant(t *testing.T, rec *domain.ChurnRecord) {
	t.Helper()
	if len(rec.CallAttempts) != rec.CurrentCallNumber-1 {
		t.Fatalf("history invariant broken: %d attempts, next call number %d",
			len(rec.CallAttempts), rec.CurrentCallNumber)
	}
	for i, a := range rec.CallAttempts {
		if a.CallNumber != i+1 {
			t.Fatalf("attempt %d has call number %d", i, a.CallNumber)
		}
	}
}

func TestInvalidResponseRejected(t *testing.T) {
	rec := newRecord()
	err := followup.ApplyCall(rec, followup.CallInput{Response: "shouted"}, t0, followup.DefaultRules())
	if !errors.Is(err, followup.ErrInvalidCallResponse) {
		t.Fatalf("expected ErrInvalidCallResponse, got %v", err)
	}
	if len(rec.CallAttempts) != 0 || rec.CurrentCallNumber != 1 {
		t.Fatal("record mutated by failed validation")
	}
}

func TestNonConnectedMakesRecordImmediatelyDue(t *testing.T) {
	for _, resp := range []domain.CallResponse{
		domain.ResponseBusy, domain.ResponseRequestedCallback, domain.ResponseNoAnswer,
	} {
		t.Run(string(resp), func(t *testing.T) {
			rec := newRecord()
			mustApply(t, rec, followup.CallInput{Response: resp}, t0)

			if !rec.FollowUp.Active() {
				t.Error("expected follow-up active")
			}
			if rec.FollowUp.ReminderAt == nil || !rec.FollowUp.ReminderAt.Equal(t0) {
				t.Errorf("expected reminder at call timestamp, got %v", rec.FollowUp.ReminderAt)
			}
			if rec.Status != domain.FollowUpInProgress {
				t.Errorf("status changed to %q", rec.Status)
			}
			checkHistoryInvariant(t, rec)
		})
	}
}

func TestConnectedRequiresReason(t *testing.T) {
	rec := newRecord()
	err := followup.ApplyCall(rec, followup.CallInput{Response: domain.ResponseConnected}, t0, followup.DefaultRules())
	if !errors.Is(err, followup.ErrMissingChurnReason) {
		t.Fatalf("expected ErrMissingChurnReason, got %v", err)
	}
	if len(rec.CallAttempts) != 0 {
		t.Fatal("record mutated by failed validation")
	}
}

func TestConnectedTerminalReasonCompletes(t *testing.T) {
	tests := []string{
		"permanently closed", "switched provider", "ownership transferred",
		"temporarily closed", "Renewal payment overdue", "demo/event account",
		"now active again",
	}
	for _, reason := range tests {
		t.Run(reason, func(t *testing.T) {
			rec := newRecord()
			mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: reason}, t0)

			if rec.FollowUp.Active() {
				t.Error("terminal reason must deactivate follow-up")
			}
			if rec.FollowUp.ReminderAt != nil {
				t.Error("terminal reason must clear the reminder")
			}
			if rec.Status != domain.FollowUpCompleted {
				t.Errorf("status = %q, want completed", rec.Status)
			}
			checkHistoryInvariant(t, rec)
		})
	}
}

func TestConnectedInProgressReasonDeactivates(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected,
		Reason:   "pending integration discussion",
	}, t0)

	if rec.FollowUp.Active() {
		t.Error("substantive reason resolves the chase by default")
	}
	if rec.Status != domain.FollowUpInProgress {
		t.Errorf("status = %q, want in_progress", rec.Status)
	}
}

func TestUnresolvedReminderLadder(t *testing.T) {
	rec := newRecord()

	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	if got := rec.FollowUp.ReminderAt; got == nil || !got.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("first unresolved call: reminder = %v, want +2h", got)
	}

	t1 := t0.Add(3 * time.Hour)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t1)
	if got := rec.FollowUp.ReminderAt; got == nil || !got.Equal(t1.Add(48*time.Hour)) {
		t.Fatalf("second unresolved call: reminder = %v, want +48h", got)
	}

	// Third unresolved conversation without a word about the outreach mail.
	t2 := t1.Add(50 * time.Hour)
	err := followup.ApplyCall(rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t2, followup.DefaultRules())
	if !errors.Is(err, followup.ErrMailConfirmationRequired) {
		t.Fatalf("third unresolved call without confirmation: got %v", err)
	}
	checkHistoryInvariant(t, rec)

	// Confirmed: reminders stop and the record goes quiet for good.
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected, Reason: "unknown", MailConfirmed: boolPtr(true),
	}, t2)
	if rec.FollowUp.Active() {
		t.Error("expected inactive after confirmed third unresolved call")
	}
	if rec.FollowUp.ReminderAt != nil {
		t.Error("expected no reminder after confirmed third unresolved call")
	}
	if !rec.MailSent {
		t.Error("sticky mail flag not set")
	}
}

func TestThirdUnresolvedCallWithExplicitNoMailAwaitsConfirmation(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected, Reason: "unknown", MailConfirmed: boolPtr(false),
	}, t0)

	if rec.FollowUp.Phase != domain.PhaseAwaitingMailConfirmation {
		t.Fatalf("phase = %q, want awaiting_mail_confirmation", rec.FollowUp.Phase)
	}
	if !rec.FollowUp.Active() || rec.FollowUp.ReminderAt != nil {
		t.Fatal("awaiting-mail record must be active with no reminder")
	}
	if rec.MailSent {
		t.Fatal("explicit false must not set the sticky flag")
	}

	// The standalone confirmation later closes the chase permanently.
	followup.ApplyMailConfirmation(rec, t0.Add(time.Hour))
	if rec.FollowUp.Active() {
		t.Error("expected inactive after standalone mail confirmation")
	}
	if !rec.MailSent {
		t.Error("sticky flag not set by standalone confirmation")
	}
}

func TestThirdCallNonConnectedRequiresMailAnswer(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy}, t0)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseNoAnswer}, t0)

	// Call number 3, still nobody on the line.
	err := followup.ApplyCall(rec, followup.CallInput{Response: domain.ResponseBusy}, t0, followup.DefaultRules())
	if !errors.Is(err, followup.ErrMailConfirmationRequired) {
		t.Fatalf("expected ErrMailConfirmationRequired, got %v", err)
	}

	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy, MailConfirmed: boolPtr(false)}, t0)
	if rec.FollowUp.Phase != domain.PhasePendingReminder {
		t.Errorf("phase = %q, want pending_reminder", rec.FollowUp.Phase)
	}
	checkHistoryInvariant(t, rec)
}

func TestFourthCallForcesConnected(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy}, t0)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy}, t0)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy, MailConfirmed: boolPtr(false)}, t0)

	// Call 4: a busy outcome is still treated as connected, so the reason
	// becomes mandatory.
	err := followup.ApplyCall(rec, followup.CallInput{Response: domain.ResponseBusy}, t0, followup.DefaultRules())
	if !errors.Is(err, followup.ErrMissingChurnReason) {
		t.Fatalf("expected ErrMissingChurnReason on forced connection, got %v", err)
	}

	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy, Reason: "permanently closed"}, t0)
	last := rec.CallAttempts[len(rec.CallAttempts)-1]
	if last.Response != domain.ResponseConnected {
		t.Errorf("recorded response = %q, want connected", last.Response)
	}
	if last.Reason == nil || last.Reason.Code != domain.ReasonPermanentlyClosed {
		t.Errorf("recorded reason = %+v", last.Reason)
	}
	if rec.Status != domain.FollowUpCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	checkHistoryInvariant(t, rec)
}

func TestMailOverrideSilencesLaterUnresolvedCalls(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected, Reason: "unknown", MailConfirmed: boolPtr(true),
	}, t0)
	if rec.FollowUp.Active() {
		t.Fatal("precondition: record silenced")
	}

	// Customer calls back, still unresolved. The mail already went out, so
	// the record stays quiet.
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0.Add(24*time.Hour))
	if rec.FollowUp.Active() {
		t.Error("mail override must keep the record inactive")
	}
	if rec.FollowUp.ReminderAt != nil {
		t.Error("mail override must keep the reminder clear")
	}
}

func TestEarlyMailConfirmationDoesNotSilence(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected, Reason: "unknown", MailConfirmed: boolPtr(true),
	}, t0)

	if !rec.MailSent {
		t.Fatal("sticky flag should be set")
	}
	// Only one call recorded: the reminder ladder still runs.
	if rec.FollowUp.Phase != domain.PhasePendingReminder {
		t.Errorf("phase = %q, want pending_reminder", rec.FollowUp.Phase)
	}
}

func TestReasonEdit(t *testing.T) {
	rec := newRecord()
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "permanently closed"}, t0)
	if rec.Status != domain.FollowUpCompleted {
		t.Fatal("precondition: completed")
	}

	// Reopen with a substantive reason.
	followup.ApplyReasonEdit(rec, "pending integration discussion", t0.Add(time.Hour))
	if rec.Reason.Code != domain.ReasonOther {
		t.Fatalf("reason = %+v", rec.Reason)
	}
	if rec.Status != domain.FollowUpInProgress {
		t.Errorf("status = %q, want in_progress after reopening edit", rec.Status)
	}

	// Close again directly.
	followup.ApplyReasonEdit(rec, "switched provider", t0.Add(2*time.Hour))
	if rec.Status != domain.FollowUpCompleted || rec.FollowUp.Active() {
		t.Error("terminal edit must complete and deactivate")
	}
	if rec.FollowUp.ReminderAt != nil {
		t.Error("terminal edit must clear the reminder")
	}
}

// The full story: R1 created 4 days ago with no reason, worked over four calls.
func TestEndToEndCallSequence(t *testing.T) {
	rec := newRecord()

	// Call 1: busy. Ready again immediately.
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseBusy}, t0)
	if rec.CurrentCallNumber != 2 || !rec.FollowUp.DueAt(t0) {
		t.Fatalf("after call 1: number=%d state=%+v", rec.CurrentCallNumber, rec.FollowUp)
	}

	// Call 2: connected, nothing substantive yet.
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	if rec.CurrentCallNumber != 3 || !rec.FollowUp.ReminderAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("after call 2: number=%d reminder=%v", rec.CurrentCallNumber, rec.FollowUp.ReminderAt)
	}

	// Call 3: connected, still nothing.
	mustApply(t, rec, followup.CallInput{Response: domain.ResponseConnected, Reason: "unknown"}, t0)
	if rec.CurrentCallNumber != 4 || !rec.FollowUp.ReminderAt.Equal(t0.Add(48*time.Hour)) {
		t.Fatalf("after call 3: number=%d reminder=%v", rec.CurrentCallNumber, rec.FollowUp.ReminderAt)
	}

	// Call 4: connected, still unresolved, outreach mail confirmed.
	mustApply(t, rec, followup.CallInput{
		Response: domain.ResponseConnected, Reason: "unknown", MailConfirmed: boolPtr(true),
	}, t0)
	if rec.CurrentCallNumber != 5 {
		t.Fatalf("after call 4: number=%d", rec.CurrentCallNumber)
	}
	if rec.FollowUp.Active() || rec.FollowUp.ReminderAt != nil {
		t.Fatalf("after call 4: state=%+v, want inactive with no reminder", rec.FollowUp)
	}
	checkHistoryInvariant(t, rec)
}
