// Package followup implements the retention follow-up state machine.
//
// The service layer contains all business logic for recording call attempts,
// computing next-reminder times, confirming outreach mail, and deriving the
// active/due/dashboard views. It depends on the Repository interface defined
// in this package and should never import from api/.
//
// The transition rules live in transition.go as pure functions so they can
// be tested without a store. Repository implementations live in
// repository/postgres/.
package followup
