package followup

import (
	"time"

	"github.com/ignite/retention-monitor/internal/domain"
)

// ListActive returns the records an agent can work right now: follow-up is
// active and any scheduled reminder has already passed. Pure function; the
// service wraps it with a store query.
func ListActive(records []domain.ChurnRecord, now time.Time) []domain.ChurnRecord {
	var out []domain.ChurnRecord
	for _, r := range records {
		if r.FollowUp.DueAt(now) {
			out = append(out, r)
		}
	}
	return out
}

// ListDue is the reminder-due operational list. It is the same filter as
// ListActive under its own name: "due" here means the reminder has fired,
// which is not the same thing as the dashboard's age-based "overdue" bucket.
func ListDue(records []domain.ChurnRecord, now time.Time) []domain.ChurnRecord {
	return ListActive(records, now)
}

// CategorySummary is one aggregate pass over a record set: per-bucket counts
// plus the full partition. Every record appears in exactly one bucket.
type CategorySummary struct {
	NewCount  int `json:"new_count"`
	Overdue   int `json:"overdue"`
	FollowUps int `json:"follow_ups"`
	Completed int `json:"completed"`

	Buckets map[domain.Category][]domain.ChurnRecord `json:"buckets,omitempty"`
}

// Total returns the number of categorized records.
func (s CategorySummary) Total() int {
	return s.NewCount + s.Overdue + s.FollowUps + s.Completed
}

// Categorize buckets every record independently. The result is identical
// whether callers use the counts or filter the Buckets themselves.
func Categorize(records []domain.ChurnRecord, now time.Time, overdueAge time.Duration) CategorySummary {
	s := CategorySummary{Buckets: make(map[domain.Category][]domain.ChurnRecord)}
	for _, r := range records {
		c := domain.CategorizeAt(&r, now, overdueAge)
		s.Buckets[c] = append(s.Buckets[c], r)
		switch c {
		case domain.CategoryNew:
			s.NewCount++
		case domain.CategoryOverdue:
			s.Overdue++
		case domain.CategoryFollowUps:
			s.FollowUps++
		case domain.CategoryCompleted:
			s.Completed++
		}
	}
	return s
}
