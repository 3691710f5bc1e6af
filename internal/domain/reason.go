package domain

import "strings"

// ReasonCode is the closed vocabulary of churn reasons. Anything outside the
// known set parses to ReasonOther with the original wording preserved, so the
// classifier and the reminder calculator can switch exhaustively over codes.
type ReasonCode string

const (
	// ReasonNone means no reason has been captured yet.
	ReasonNone ReasonCode = ""

	// Placeholder reasons: no substantive response obtained yet.
	ReasonUnknown         ReasonCode = "unknown"
	ReasonAwaitingManager ReasonCode = "awaiting_account_manager"

	// Terminal reasons: the case is closed, no further follow-up.
	ReasonPermanentlyClosed    ReasonCode = "permanently_closed"
	ReasonSwitchedProvider     ReasonCode = "switched_provider"
	ReasonOwnershipTransferred ReasonCode = "ownership_transferred"
	ReasonTemporarilyClosed    ReasonCode = "temporarily_closed"
	ReasonPaymentOverdue       ReasonCode = "payment_overdue"
	ReasonDemoAccount          ReasonCode = "demo_account"
	ReasonActiveAgain          ReasonCode = "active_again"

	// ReasonOther is any substantive, non-terminal reason an agent typed in.
	ReasonOther ReasonCode = "other"
)

// ChurnReason is a parsed churn reason. Text carries the agent's original
// wording and is only meaningful for ReasonOther.
type ChurnReason struct {
	Code ReasonCode `json:"code"`
	Text string     `json:"text,omitempty"`
}

// reasonAliases maps normalized human wordings onto codes. Keys are
// lowercased with hyphens/slashes/underscores folded to single spaces, so
// both UI labels ("Renewal payment overdue") and codes ("payment_overdue")
// resolve to the same entry.
var reasonAliases = map[string]ReasonCode{
	"unknown":                           ReasonUnknown,
	"awaiting account manager response": ReasonAwaitingManager,
	"awaiting account manager":          ReasonAwaitingManager,
	"permanently closed":                ReasonPermanentlyClosed,
	"closed permanently":                ReasonPermanentlyClosed,
	"switched provider":                 ReasonSwitchedProvider,
	"switched to another provider":      ReasonSwitchedProvider,
	"ownership transferred":             ReasonOwnershipTransferred,
	"ownership transfer":                ReasonOwnershipTransferred,
	"temporarily closed":                ReasonTemporarilyClosed,
	"payment overdue":                   ReasonPaymentOverdue,
	"renewal payment overdue":           ReasonPaymentOverdue,
	"demo account":                      ReasonDemoAccount,
	"demo event account":                ReasonDemoAccount,
	"event account":                     ReasonDemoAccount,
	"now active again":                  ReasonActiveAgain,
	"active again":                      ReasonActiveAgain,
}

func normalizeReason(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "/", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseReason classifies a raw reason string (case-insensitive, trimmed)
// into the closed vocabulary. Empty input yields ReasonNone; unrecognized
// input yields ReasonOther with the original wording kept.
func ParseReason(raw string) ChurnReason {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ChurnReason{Code: ReasonNone}
	}
	if code, ok := reasonAliases[normalizeReason(trimmed)]; ok {
		return ChurnReason{Code: code}
	}
	return ChurnReason{Code: ReasonOther, Text: trimmed}
}

// IsUnresolved reports whether the reason means "no substantive response
// yet". Used by the aging categorizer.
func (r ChurnReason) IsUnresolved() bool {
	switch r.Code {
	case ReasonNone, ReasonUnknown, ReasonAwaitingManager:
		return true
	}
	return false
}

// IsTerminal reports whether the reason is a final outcome: the case is
// closed and no further follow-up happens.
func (r ChurnReason) IsTerminal() bool {
	switch r.Code {
	case ReasonPermanentlyClosed, ReasonSwitchedProvider, ReasonOwnershipTransferred,
		ReasonTemporarilyClosed, ReasonPaymentOverdue, ReasonDemoAccount, ReasonActiveAgain:
		return true
	}
	return false
}

// NeedsCalling reports whether a connected call carrying this reason still
// requires further calls. Coincides with IsUnresolved today; reminder
// scheduling and dashboard aging remain separate predicates.
func (r ChurnReason) NeedsCalling() bool {
	switch r.Code {
	case ReasonNone, ReasonUnknown, ReasonAwaitingManager:
		return true
	}
	return false
}

// Label returns the human-readable form: the preserved wording for
// ReasonOther, the code otherwise.
func (r ChurnReason) Label() string {
	if r.Code == ReasonOther {
		return r.Text
	}
	return string(r.Code)
}
