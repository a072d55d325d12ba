package insights

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the weekly insight roll-up on a cron schedule. Each run
// covers the previous full Monday-to-Monday week for every user active in
// the last 30 days.
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	spec    string
	log     zerolog.Logger
	mu      sync.Mutex
	running bool
}

// DefaultSchedule fires Mondays at 03:00.
const DefaultSchedule = "0 3 * * 1"

// NewScheduler creates a weekly insight scheduler. An empty spec uses
// DefaultSchedule.
func NewScheduler(service *Service, spec string, log zerolog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	return &Scheduler{
		service: service,
		spec:    spec,
		log:     log.With().Str("component", "insight-scheduler").Logger(),
	}
}

// Start registers the cron job and begins the schedule. Safe to call once;
// subsequent calls are no-ops until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.log.Info().Str("schedule", s.spec).Msg("insight scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info().Msg("insight scheduler stopped")
}

// RunOnce generates the previous week's insight for every recently active
// user. A failure for one user is logged and does not block the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	weekStart := PreviousWeekStart(time.Now().UTC())

	users, err := s.service.store.ActiveUserIDs(ctx, weekStart.AddDate(0, 0, -30))
	if err != nil {
		s.log.Error().Err(err).Msg("list active users")
		return
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.service.GenerateWeekly(ctx, userID, weekStart); err != nil {
			s.log.Warn().Err(err).Str("user", userID.String()).Msg("weekly insight failed")
		}
	}
}

// PreviousWeekStart returns the Monday 00:00 UTC starting the last full
// week before now.
func PreviousWeekStart(now time.Time) time.Time {
	now = now.UTC().Truncate(24 * time.Hour)
	// Walk back to this week's Monday, then one more week
	offset := (int(now.Weekday()) + 6) % 7
	return now.AddDate(0, 0, -offset-7)
}
