package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/repository"
)

type stubPreferenceSource struct {
	mu    sync.Mutex
	prefs map[string]*domain.PrayerPreferences
	errs  map[string]error
}

func newStubPreferenceSource() *stubPreferenceSource {
	return &stubPreferenceSource{
		prefs: make(map[string]*domain.PrayerPreferences),
		errs:  make(map[string]error),
	}
}

func (s *stubPreferenceSource) set(prefs *domain.PrayerPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefs.UserID] = prefs
}

func (s *stubPreferenceSource) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, userID)
}

func (s *stubPreferenceSource) Get(_ context.Context, userID string) (*domain.PrayerPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[userID]; ok {
		return nil, err
	}
	prefs, ok := s.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *prefs
	return &copied, nil
}

func (s *stubPreferenceSource) ListSubscribedUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []string
	for userID := range s.prefs {
		users = append(users, userID)
	}
	for userID := range s.errs {
		users = append(users, userID)
	}
	return users, nil
}

// fixedCalculator returns the same prayer times regardless of input.
type fixedCalculator struct {
	times domain.PrayerTimes
}

func (c *fixedCalculator) Calculate(_, _ float64, _ time.Time, _, _, _ string) (domain.PrayerTimes, error) {
	return c.times, nil
}

type recordingQueue struct {
	mu       sync.Mutex
	enqueued []domain.PushNotification
}

func (q *recordingQueue) Enqueue(_ context.Context, notification domain.PushNotification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, notification)
	return nil
}

func (q *recordingQueue) all() []domain.PushNotification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.PushNotification, len(q.enqueued))
	copy(out, q.enqueued)
	return out
}

type channelBus struct {
	events chan domain.PreferencesChangedEvent
}

func newChannelBus() *channelBus {
	return &channelBus{events: make(chan domain.PreferencesChangedEvent, 16)}
}

func (b *channelBus) Publish(event domain.PreferencesChangedEvent) { b.events <- event }
func (b *channelBus) Subscribe() <-chan domain.PreferencesChangedEvent {
	return b.events
}

func testPrefs(userID string, reminderMinutes int) *domain.PrayerPreferences {
	return &domain.PrayerPreferences{
		UserID:            userID,
		SubscriptionID:    "sub-" + userID,
		Latitude:          25.2048,
		Longitude:         55.2708,
		Timezone:          "UTC",
		CalculationMethod: "mwl",
		Madhab:            "shafi",
		Enabled: map[domain.Prayer]bool{
			domain.PrayerFajr:  true,
			domain.PrayerDhuhr: true,
		},
		ReminderMinutes: reminderMinutes,
	}
}

func newTestScheduler(t *testing.T, now time.Time, source *stubPreferenceSource, calc *fixedCalculator, queue *recordingQueue, eventBus *channelBus) *PrayerScheduler {
	t.Helper()
	cfg := config.SchedulerSettings{RescanInterval: time.Hour, ReminderMinutes: 0}
	var busPort port.PreferenceBus
	if eventBus != nil {
		busPort = eventBus
	}
	scheduler := NewPrayerScheduler(cfg, source, calc, queue, busPort, nil, zaptest.NewLogger(t))
	scheduler.WithClock(func() time.Time { return now })
	return scheduler
}

func TestScheduleArmsMainAndReminderPerEnabledPrayer(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	source.set(testPrefs("u", 10))
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr:    now.Add(2 * time.Hour),
		domain.PrayerDhuhr:   now.Add(4 * time.Hour),
		domain.PrayerAsr:     now.Add(6 * time.Hour),
		domain.PrayerMaghrib: now.Add(8 * time.Hour),
		domain.PrayerIsha:    now.Add(10 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()

	if err := scheduler.ScheduleAllForUser(context.Background(), "u"); err != nil {
		t.Fatalf("ScheduleAllForUser: %v", err)
	}

	// Two enabled prayers, a main and a reminder timer each.
	if got := scheduler.JobCount("u"); got != 4 {
		t.Fatalf("JobCount = %d, want 4", got)
	}
}

func TestRescheduleNeverDuplicatesTimers(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	source.set(testPrefs("u", 10))
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr:  now.Add(2 * time.Hour),
		domain.PrayerDhuhr: now.Add(4 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()
	ctx := context.Background()

	scheduler.Reschedule(ctx, "u")
	first := scheduler.JobCount("u")
	scheduler.Reschedule(ctx, "u")
	second := scheduler.JobCount("u")

	if first != 4 || second != 4 {
		t.Fatalf("job counts = %d then %d, want exactly 4 both times", first, second)
	}
}

func TestScheduleSkipsElapsedPrayers(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	source.set(testPrefs("u", 0))
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr:  now.Add(-9 * time.Hour),
		domain.PrayerDhuhr: now.Add(2 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()

	if err := scheduler.ScheduleAllForUser(context.Background(), "u"); err != nil {
		t.Fatalf("ScheduleAllForUser: %v", err)
	}
	if got := scheduler.JobCount("u"); got != 1 {
		t.Fatalf("JobCount = %d, want 1 (fajr already elapsed, no reminders)", got)
	}
}

func TestReminderSkippedWhenLeadAlreadyPassed(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	prefs := testPrefs("u", 10)
	prefs.Enabled = map[domain.Prayer]bool{domain.PrayerDhuhr: true}
	source.set(prefs)
	// Prayer is seven minutes out; a ten minute reminder lead is in the past.
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerDhuhr: now.Add(7 * time.Minute),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()

	if err := scheduler.ScheduleAllForUser(context.Background(), "u"); err != nil {
		t.Fatalf("ScheduleAllForUser: %v", err)
	}
	if got := scheduler.JobCount("u"); got != 1 {
		t.Fatalf("JobCount = %d, want main timer only", got)
	}
}

func TestMissingPreferencesCancelExistingJobs(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	source.set(testPrefs("u", 0))
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr:  now.Add(2 * time.Hour),
		domain.PrayerDhuhr: now.Add(4 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()
	ctx := context.Background()

	scheduler.Reschedule(ctx, "u")
	if got := scheduler.JobCount("u"); got != 2 {
		t.Fatalf("JobCount = %d, want 2", got)
	}

	source.remove("u")
	scheduler.Reschedule(ctx, "u")
	if got := scheduler.JobCount("u"); got != 0 {
		t.Fatalf("JobCount after unsubscribe = %d, want 0", got)
	}
}

func TestEmptySubscriptionSchedulesNothing(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	prefs := testPrefs("u", 0)
	prefs.SubscriptionID = ""
	source.set(prefs)
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr: now.Add(2 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()

	if err := scheduler.ScheduleAllForUser(context.Background(), "u"); err != nil {
		t.Fatalf("ScheduleAllForUser: %v", err)
	}
	if got := scheduler.JobCount("u"); got != 0 {
		t.Fatalf("JobCount = %d, want 0 without a subscription", got)
	}
}

func TestSchedulingPassIsolatesPerUserFailures(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	source.set(testPrefs("good", 0))
	source.errs["bad"] = errors.New("datastore down")
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerFajr:  now.Add(2 * time.Hour),
		domain.PrayerDhuhr: now.Add(4 * time.Hour),
	}}
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, nil)
	defer scheduler.CancelAll()

	scheduler.scheduleAll(context.Background())

	if got := scheduler.JobCount("good"); got != 2 {
		t.Fatalf("healthy user JobCount = %d, want 2 despite the failing user", got)
	}
}

func TestFiredJobEnqueuesNotificationWithDedupeKey(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	prefs := testPrefs("u", 0)
	prefs.Enabled = map[domain.Prayer]bool{domain.PrayerDhuhr: true}
	source.set(prefs)
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerDhuhr: now.Add(30 * time.Millisecond),
	}}
	queue := &recordingQueue{}
	scheduler := newTestScheduler(t, now, source, calc, queue, nil)
	defer scheduler.CancelAll()

	if err := scheduler.ScheduleAllForUser(context.Background(), "u"); err != nil {
		t.Fatalf("ScheduleAllForUser: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(queue.all()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification never enqueued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	enqueued := queue.all()
	if len(enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(enqueued))
	}
	wantKey := domain.PrayerJobKey("sub-u", domain.PrayerDhuhr, "main", now)
	if enqueued[0].DedupeKey != wantKey {
		t.Fatalf("dedupe key = %q, want %q", enqueued[0].DedupeKey, wantKey)
	}
	if enqueued[0].Data["prayer"] != "dhuhr" {
		t.Fatalf("payload prayer = %v, want dhuhr", enqueued[0].Data["prayer"])
	}
	if got := scheduler.JobCount("u"); got != 0 {
		t.Fatalf("JobCount after firing = %d, want 0", got)
	}
}

func TestPreferenceChangeRebuildsScheduleThroughBus(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	source := newStubPreferenceSource()
	prefs := testPrefs("u", 5)
	prefs.Enabled = map[domain.Prayer]bool{domain.PrayerDhuhr: true}
	source.set(prefs)
	// Seven minutes out: a five minute lead fits, a ten minute lead does not.
	calc := &fixedCalculator{times: domain.PrayerTimes{
		domain.PrayerDhuhr: now.Add(7 * time.Minute),
	}}
	eventBus := newChannelBus()
	scheduler := newTestScheduler(t, now, source, calc, &recordingQueue{}, eventBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	waitForJobCount := func(want int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for scheduler.JobCount("u") != want {
			if time.Now().After(deadline) {
				t.Fatalf("JobCount = %d, want %d", scheduler.JobCount("u"), want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	waitForJobCount(2)

	updated := testPrefs("u", 10)
	updated.Enabled = map[domain.Prayer]bool{domain.PrayerDhuhr: true}
	source.set(updated)
	eventBus.Publish(domain.PreferencesChangedEvent{UserID: "u", ChangedAt: now})

	// The longer lead falls in the past, so the rebuilt schedule drops the
	// reminder timer.
	waitForJobCount(1)

	cancel()
	<-done
	if got := scheduler.JobCount("u"); got != 0 {
		t.Fatalf("JobCount after shutdown = %d, want 0", got)
	}
}
