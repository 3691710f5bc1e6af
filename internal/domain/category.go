package domain

import "time"

// Category is the dashboard bucket a record falls into. Every record is in
// exactly one bucket; the four buckets partition any record set.
type Category string

const (
	// CategoryNew: no substantive reason yet and the record is younger than
	// the overdue age.
	CategoryNew Category = "new"
	// CategoryOverdue: no substantive reason yet and the record has aged past
	// the overdue threshold. Distinct from reminder-due (see the query views).
	CategoryOverdue Category = "overdue"
	// CategoryFollowUps: a substantive, non-terminal reason is being worked.
	CategoryFollowUps Category = "follow_ups"
	// CategoryCompleted: a terminal reason closed the case.
	CategoryCompleted Category = "completed"
)

// OverdueAge is how old an unresolved record may get before it counts as
// overdue on the dashboard.
const OverdueAge = 72 * time.Hour

// Categorize buckets a record by reason and age using the default overdue
// threshold. Terminal reasons win regardless of age; then unresolved records
// split on age; everything else is an in-progress follow-up.
func Categorize(r *ChurnRecord, now time.Time) Category {
	return CategorizeAt(r, now, OverdueAge)
}

// CategorizeAt is Categorize with an explicit overdue threshold.
func CategorizeAt(r *ChurnRecord, now time.Time, overdueAge time.Duration) Category {
	switch {
	case r.Reason.IsTerminal():
		return CategoryCompleted
	case r.Reason.IsUnresolved() && now.Sub(r.CreatedAt) < overdueAge:
		return CategoryNew
	case r.Reason.IsUnresolved():
		return CategoryOverdue
	default:
		return CategoryFollowUps
	}
}
