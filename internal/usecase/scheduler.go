package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/telemetry"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/repository"
)

// prayerTitles are the notification titles per prayer.
var prayerTitles = map[domain.Prayer]string{
	domain.PrayerFajr:    "Fajr",
	domain.PrayerDhuhr:   "Dhuhr",
	domain.PrayerAsr:     "Asr",
	domain.PrayerMaghrib: "Maghrib",
	domain.PrayerIsha:    "Isha",
}

// userJobs tracks one user's live timers plus the coalescing state for
// reschedule requests arriving while a reschedule is already running.
type userJobs struct {
	timers map[string]*time.Timer

	rescheduling bool
	pending      bool
}

// PrayerScheduler maintains one delayed job per enabled prayer per user per
// day. It reacts to preference-change events with a cancel-then-reschedule
// cycle and reconciles drift with a daily pass plus a periodic safety rescan.
type PrayerScheduler struct {
	cfg         config.SchedulerSettings
	preferences port.PreferenceSource
	calculator  port.PrayerTimeCalculator
	queue       port.PushQueue
	bus         port.PreferenceBus
	metrics     *telemetry.Metrics
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	registry map[string]*userJobs
}

// NewPrayerScheduler constructs a PrayerScheduler.
func NewPrayerScheduler(
	cfg config.SchedulerSettings,
	preferences port.PreferenceSource,
	calculator port.PrayerTimeCalculator,
	queue port.PushQueue,
	bus port.PreferenceBus,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *PrayerScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	scheduler := &PrayerScheduler{
		cfg:         cfg,
		preferences: preferences,
		calculator:  calculator,
		queue:       queue,
		bus:         bus,
		metrics:     metrics,
		logger:      log,
		registry:    make(map[string]*userJobs),
	}
	scheduler.now = func() time.Time { return time.Now().UTC() }
	return scheduler
}

// WithClock overrides the internal clock for deterministic tests.
func (s *PrayerScheduler) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run drives the scheduler until the context is cancelled: an initial full
// pass, the preference-change subscription, a daily refresh, and the
// periodic safety rescan. Blocks; run it on its own goroutine.
func (s *PrayerScheduler) Run(ctx context.Context) {
	s.scheduleAll(ctx)

	rescan := time.NewTicker(s.rescanInterval())
	defer rescan.Stop()

	daily := time.NewTimer(s.untilNextMidnight())
	defer daily.Stop()

	var events <-chan domain.PreferencesChangedEvent
	if s.bus != nil {
		events = s.bus.Subscribe()
	}

	for {
		select {
		case <-ctx.Done():
			s.CancelAll()
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.Reschedule(ctx, event.UserID)
		case <-daily.C:
			s.scheduleAll(ctx)
			daily.Reset(s.untilNextMidnight())
		case <-rescan.C:
			s.scheduleAll(ctx)
		}
	}
}

// ScheduleAllForUser reads the user's preferences fresh and creates one timer
// per enabled prayer whose time is still ahead, plus a reminder timer when
// reminders are configured. Existing timers for the user are replaced.
func (s *PrayerScheduler) ScheduleAllForUser(ctx context.Context, userID string) error {
	prefs, err := s.preferences.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.CancelAllForUser(userID)
			return nil
		}
		return fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil || prefs.SubscriptionID == "" {
		s.CancelAllForUser(userID)
		return nil
	}

	now := s.now()
	today := s.localDate(now, prefs.Timezone)

	times, err := s.calculator.Calculate(prefs.Latitude, prefs.Longitude, today, prefs.Timezone, prefs.CalculationMethod, prefs.Madhab)
	if err != nil {
		return fmt.Errorf("calculate prayer times: %w", err)
	}

	s.CancelAllForUser(userID)

	scheduled := 0
	for _, prayer := range domain.Prayers {
		if !prefs.Enabled[prayer] {
			continue
		}
		at, ok := times[prayer]
		if !ok || !at.After(now) {
			continue
		}

		s.arm(ctx, userID, prefs, prayer, "main", today, at.Sub(now))
		scheduled++

		reminder := s.reminderLead(prefs)
		if reminder > 0 && at.Add(-reminder).After(now) {
			s.arm(ctx, userID, prefs, prayer, "reminder", today, at.Add(-reminder).Sub(now))
			scheduled++
		}
	}

	s.logger.Debug("prayer jobs scheduled",
		zap.String("user_id", userID),
		zap.Int("jobs", scheduled),
	)
	return nil
}

// CancelAllForUser cancels every live timer for the user and clears the
// registry entry. Safe to call when no jobs exist.
func (s *PrayerScheduler) CancelAllForUser(userID string) {
	s.mu.Lock()
	jobs, ok := s.registry[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	timers := jobs.timers
	jobs.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, timer := range timers {
		if timer.Stop() && s.metrics != nil {
			s.metrics.JobsCancelled.Inc()
		}
	}
}

// CancelAll tears down every user's timers, used on shutdown.
func (s *PrayerScheduler) CancelAll() {
	s.mu.Lock()
	users := make([]string, 0, len(s.registry))
	for userID := range s.registry {
		users = append(users, userID)
	}
	s.mu.Unlock()

	for _, userID := range users {
		s.CancelAllForUser(userID)
	}
}

// Reschedule runs the cancel-then-schedule cycle for one user. Concurrent
// calls for the same user coalesce: while a cycle is running, further calls
// mark it dirty and exactly one more cycle runs afterwards, so the final
// state always reflects the latest preferences without duplicate timers.
func (s *PrayerScheduler) Reschedule(ctx context.Context, userID string) {
	s.mu.Lock()
	jobs := s.jobsLocked(userID)
	if jobs.rescheduling {
		jobs.pending = true
		s.mu.Unlock()
		return
	}
	jobs.rescheduling = true
	s.mu.Unlock()

	for {
		if err := s.ScheduleAllForUser(ctx, userID); err != nil {
			s.logger.Warn("reschedule failed",
				zap.String("user_id", userID), zap.Error(err))
		}

		s.mu.Lock()
		jobs = s.jobsLocked(userID)
		if !jobs.pending {
			jobs.rescheduling = false
			s.mu.Unlock()
			return
		}
		jobs.pending = false
		s.mu.Unlock()
	}
}

// JobCount reports the user's live timer count.
func (s *PrayerScheduler) JobCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs, ok := s.registry[userID]
	if !ok {
		return 0
	}
	return len(jobs.timers)
}

// scheduleAll runs a full pass over every subscribed user. A per-user
// failure is logged and skipped, never aborting the batch.
func (s *PrayerScheduler) scheduleAll(ctx context.Context) {
	users, err := s.preferences.ListSubscribedUsers(ctx)
	if err != nil {
		s.logger.Error("list subscribed users failed", zap.Error(err))
		return
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.Reschedule(ctx, userID)
	}

	s.logger.Info("scheduling pass complete", zap.Int("users", len(users)))
}

// arm registers one timer. Fired timers enqueue the push payload and remove
// themselves from the registry.
func (s *PrayerScheduler) arm(ctx context.Context, userID string, prefs *domain.PrayerPreferences, prayer domain.Prayer, kind string, date time.Time, delay time.Duration) {
	key := domain.PrayerJobKey(prefs.SubscriptionID, prayer, kind, date)
	notification := s.buildNotification(prefs, prayer, kind, key)

	s.mu.Lock()
	jobs := s.jobsLocked(userID)
	if existing, ok := jobs.timers[key]; ok {
		existing.Stop()
	}
	timer := time.AfterFunc(delay, func() {
		s.fire(ctx, userID, key, notification)
	})
	jobs.timers[key] = timer
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.JobsScheduled.Inc()
	}
}

func (s *PrayerScheduler) fire(ctx context.Context, userID, key string, notification domain.PushNotification) {
	s.mu.Lock()
	jobs, ok := s.registry[userID]
	if ok {
		delete(jobs.timers, key)
	}
	s.mu.Unlock()

	if err := s.queue.Enqueue(ctx, notification); err != nil {
		s.logger.Error("enqueue prayer notification failed",
			zap.String("user_id", userID),
			zap.String("job", key),
			zap.Error(err),
		)
	}
}

func (s *PrayerScheduler) buildNotification(prefs *domain.PrayerPreferences, prayer domain.Prayer, kind, key string) domain.PushNotification {
	title := prayerTitles[prayer]
	body := fmt.Sprintf("It's time for %s prayer", title)
	if kind == "reminder" {
		body = fmt.Sprintf("%s prayer is in %d minutes", title, s.reminderMinutes(prefs))
	}

	return domain.PushNotification{
		SubscriptionID: prefs.SubscriptionID,
		Title:          title + " Prayer",
		Body:           body,
		DedupeKey:      key,
		Data: map[string]any{
			"prayer": string(prayer),
			"kind":   kind,
		},
	}
}

func (s *PrayerScheduler) jobsLocked(userID string) *userJobs {
	jobs, ok := s.registry[userID]
	if !ok {
		jobs = &userJobs{timers: make(map[string]*time.Timer)}
		s.registry[userID] = jobs
	}
	return jobs
}

func (s *PrayerScheduler) reminderMinutes(prefs *domain.PrayerPreferences) int {
	if prefs.ReminderMinutes > 0 {
		return prefs.ReminderMinutes
	}
	return s.cfg.ReminderMinutes
}

func (s *PrayerScheduler) reminderLead(prefs *domain.PrayerPreferences) time.Duration {
	return time.Duration(s.reminderMinutes(prefs)) * time.Minute
}

func (s *PrayerScheduler) rescanInterval() time.Duration {
	if s.cfg.RescanInterval > 0 {
		return s.cfg.RescanInterval
	}
	return 6 * time.Hour
}

// localDate resolves today's date in the user's timezone, falling back to
// UTC when the zone is unknown.
func (s *PrayerScheduler) localDate(now time.Time, timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func (s *PrayerScheduler) untilNextMidnight() time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
