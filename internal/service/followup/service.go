package followup

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ignite/retention-monitor/internal/domain"
	"github.com/ignite/retention-monitor/internal/pkg/distlock"
	"github.com/ignite/retention-monitor/internal/pkg/logger"
)

// Config holds service wiring. Zero-value fields get sensible defaults.
type Config struct {
	Rules Rules

	// LockFor returns a cross-host lock scoped to one record id. Optional:
	// in-process per-id serialization always applies, and the store's
	// optimistic version check catches whatever slips past.
	LockFor func(recordID string) distlock.DistLock

	// LockWait bounds how long a writer spins on the cross-host lock before
	// giving up with ErrConflict.
	LockWait time.Duration

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// Service implements the follow-up operations. Two submissions against the
// same record id are serialized; different ids proceed in parallel.
type Service struct {
	repo Repository
	cfg  Config

	// Striped in-process locks, keyed by record id hash.
	stripes [64]sync.Mutex
}

// NewService creates a follow-up service backed by the given repository.
func NewService(repo Repository, cfg Config) *Service {
	if cfg.Rules.FirstReminderOffset == 0 {
		cfg.Rules.FirstReminderOffset = DefaultRules().FirstReminderOffset
	}
	if cfg.Rules.SecondReminderOffset == 0 {
		cfg.Rules.SecondReminderOffset = DefaultRules().SecondReminderOffset
	}
	if cfg.Rules.OverdueAge == 0 {
		cfg.Rules.OverdueAge = DefaultRules().OverdueAge
	}
	if cfg.LockWait == 0 {
		cfg.LockWait = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{repo: repo, cfg: cfg}
}

// RecordCallAttempt validates the submitted outcome, appends it to the
// record's history, advances the follow-up state, and persists atomically.
// Validation errors are returned before anything is written.
func (s *Service) RecordCallAttempt(ctx context.Context, id string, in CallInput) (*domain.ChurnRecord, error) {
	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.cfg.Now()
	rec, err := s.repo.Update(ctx, id, func(r *domain.ChurnRecord) error {
		return ApplyCall(r, in, now, s.cfg.Rules)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("call attempt recorded",
		"record_id", id,
		"call_number", rec.CurrentCallNumber-1,
		"response", string(in.Response),
		"phase", string(rec.FollowUp.Phase))
	return rec, nil
}

// ConfirmMailSent flips the sticky outreach-mail flag without recording a
// call. For a record past its third call this permanently stops the chase.
func (s *Service) ConfirmMailSent(ctx context.Context, id string) (*domain.ChurnRecord, error) {
	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.cfg.Now()
	rec, err := s.repo.Update(ctx, id, func(r *domain.ChurnRecord) error {
		ApplyMailConfirmation(r, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("mail confirmation recorded", "record_id", id, "phase", string(rec.FollowUp.Phase))
	return rec, nil
}

// UpdateReason edits the record's churn reason directly, keeping the
// follow-up flags consistent with the classifier.
func (s *Service) UpdateReason(ctx context.Context, id, rawReason string) (*domain.ChurnRecord, error) {
	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.cfg.Now()
	return s.repo.Update(ctx, id, func(r *domain.ChurnRecord) error {
		ApplyReasonEdit(r, rawReason, now)
		return nil
	})
}

// StatusView is the read model for one record's follow-up state.
type StatusView struct {
	CurrentCallNumber int                  `json:"current_call_number"`
	CallAttempts      []domain.CallAttempt `json:"call_attempts"`
	Active            bool                 `json:"is_follow_up_active"`
	Phase             domain.FollowUpPhase `json:"phase"`
	NextReminderAt    *time.Time           `json:"next_reminder_at,omitempty"`
	MailSent          bool                 `json:"mail_sent"`
}

// GetFollowUpStatus returns the follow-up read model for one record.
func (s *Service) GetFollowUpStatus(ctx context.Context, id string) (*StatusView, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	attempts := rec.CallAttempts
	if attempts == nil {
		attempts = []domain.CallAttempt{}
	}
	return &StatusView{
		CurrentCallNumber: rec.CurrentCallNumber,
		CallAttempts:      attempts,
		Active:            rec.FollowUp.Active(),
		Phase:             rec.FollowUp.Phase,
		NextReminderAt:    rec.FollowUp.ReminderAt,
		MailSent:          rec.MailSent,
	}, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, id string) (*domain.ChurnRecord, error) {
	return s.repo.Get(ctx, id)
}

// ActiveRecords queries the store and returns the workable records. Only
// Limit and Offset are honored from the filter; ActiveOnly is implied.
func (s *Service) ActiveRecords(ctx context.Context, f QueryFilter) ([]domain.ChurnRecord, error) {
	f.ActiveOnly = true
	records, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return ListActive(records, s.cfg.Now()), nil
}

// DueRecords queries the store and returns records whose reminder has fired.
func (s *Service) DueRecords(ctx context.Context, f QueryFilter) ([]domain.ChurnRecord, error) {
	f.ActiveOnly = true
	records, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return ListDue(records, s.cfg.Now()), nil
}

// Dashboard categorizes the whole record set into the four dashboard buckets.
func (s *Service) Dashboard(ctx context.Context) (*CategorySummary, error) {
	records, err := s.repo.Query(ctx, QueryFilter{})
	if err != nil {
		return nil, err
	}
	summary := Categorize(records, s.cfg.Now(), s.cfg.Rules.OverdueAge)
	return &summary, nil
}

// lockRecord serializes writers on one record id: the striped in-process
// mutex first, then the cross-host lock when one is configured.
func (s *Service) lockRecord(ctx context.Context, id string) (func(), error) {
	h := fnv.New32a()
	h.Write([]byte(id))
	stripe := &s.stripes[h.Sum32()%uint32(len(s.stripes))]
	stripe.Lock()

	if s.cfg.LockFor == nil {
		return stripe.Unlock, nil
	}

	lock := s.cfg.LockFor(id)
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			stripe.Unlock()
			return nil, fmt.Errorf("acquire record lock: %w", err)
		}
		if acquired {
			return func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("release record lock", "record_id", id, "error", err.Error())
				}
				stripe.Unlock()
			}, nil
		}
		if time.Now().After(deadline) {
			stripe.Unlock()
			return nil, ErrConflict
		}
		select {
		case <-ctx.Done():
			stripe.Unlock()
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}
