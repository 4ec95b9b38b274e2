package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/telemetry"
)

// Metadata keys the scorer inspects. Producers attach whichever signals they
// have; every key is optional.
const (
	metaUnusualLocation = "unusual_location"
	metaUnusualTime     = "unusual_time"
	metaRapidRequest    = "rapid_request"
	metaSuspiciousUA    = "suspicious_user_agent"
	metaNewDevice       = "new_device"
	metaNewIP           = "new_ip"
	metaCountry         = "country"
	metaLatitude        = "latitude"
	metaLongitude       = "longitude"
)

const maxRiskScore = 100

// RiskScorer turns the retained activity window of a user into an aggregate
// risk assessment. The scorer is purely additive and deterministic: the same
// retained history always produces the same score, level, and actions.
type RiskScorer struct {
	cfg        config.RiskSettings
	activities port.ActivityStore
	events     port.EventPublisher
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewRiskScorer constructs a RiskScorer.
func NewRiskScorer(
	cfg config.RiskSettings,
	activities port.ActivityStore,
	events port.EventPublisher,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *RiskScorer {
	if log == nil {
		log = zap.NewNop()
	}
	scorer := &RiskScorer{
		cfg:        cfg,
		activities: activities,
		events:     events,
		metrics:    metrics,
		logger:     log,
	}
	scorer.now = func() time.Time { return time.Now().UTC() }
	return scorer
}

// WithClock overrides the internal clock for deterministic tests.
func (r *RiskScorer) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// RecordActivity appends one activity to the user's retained window and
// recomputes aggregate risk from the whole window. The returned assessment
// is advisory: it carries recommended actions, never enforcement.
func (r *RiskScorer) RecordActivity(ctx context.Context, userID string, activityType domain.ActivityType, metadata map[string]any) (*domain.RiskAssessment, error) {
	now := r.now()

	activity := domain.Activity{
		UserID:    userID,
		Type:      activityType,
		Timestamp: now,
		Metadata:  metadata,
		RiskScore: r.activityScore(activityType, metadata),
	}

	if err := r.activities.Append(ctx, activity, r.cfg.RetentionWindow, r.cfg.MaxActivities); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}

	window, err := r.activities.ListWindow(ctx, userID, r.cfg.RetentionWindow, now)
	if err != nil {
		return nil, fmt.Errorf("list activity window: %w", err)
	}

	assessment := r.Assess(userID, window, now)

	if m := r.metrics; m != nil {
		m.RiskAssessments.WithLabelValues(string(assessment.Level)).Inc()
	}

	if assessment.Level == domain.RiskLevelHigh || assessment.Level == domain.RiskLevelCritical {
		r.logger.Warn("elevated risk assessment",
			zap.String("user_id", userID),
			zap.Int("score", assessment.Score),
			zap.String("level", string(assessment.Level)),
			zap.Strings("factors", assessment.Factors),
		)
		r.publishAlert(ctx, assessment)
	}

	return assessment, nil
}

// Assess scores one retained window. Exposed separately so the same logic
// can run without recording a new activity.
func (r *RiskScorer) Assess(userID string, window []domain.Activity, now time.Time) *domain.RiskAssessment {
	sorted := make([]domain.Activity, len(window))
	copy(sorted, window)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	score := 0
	var factors []string
	add := func(points int, factor string) {
		score += points
		factors = append(factors, factor)
	}

	if len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		if last.RiskScore > 0 {
			add(last.RiskScore, "activity:"+string(last.Type))
		}
	}

	if r.countSince(sorted, now.Add(-r.cfg.RapidRequestWindow)) > r.cfg.RapidRequestCount {
		add(r.cfg.RapidRequestScore, "rapid_requests")
	}

	if r.countType(sorted, domain.ActivityFailedLogin) > r.cfg.FailedLoginCount {
		add(r.cfg.FailedLoginScore, "repeated_failed_logins")
	}

	if r.loginPatternSuspicious(sorted, now) {
		add(r.cfg.LoginPatternScore, "suspicious_login_pattern")
	}

	changes := r.countType(sorted, domain.ActivityPasswordChange) +
		r.countType(sorted, domain.ActivityEmailChange) +
		r.countType(sorted, domain.ActivityMFADisable)
	if changes > r.cfg.AccountChangeCount {
		add(r.cfg.AccountChangeScore, "account_change_burst")
	}

	if r.distinctCountries(sorted) > r.cfg.CountryCount {
		add(r.cfg.CountryScore, "multiple_countries")
	}

	if r.impossibleTravel(sorted) {
		add(r.cfg.ImpossibleTravelScore, "impossible_travel")
	}

	if r.nightShare(sorted) > r.cfg.NightShareThreshold {
		add(r.cfg.NightActivityScore, "night_activity")
	}

	if regular, ok := r.timingRegular(sorted); ok && regular {
		add(r.cfg.TimingRegularityScore, "bot_like_timing")
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}

	level := r.level(score)
	return &domain.RiskAssessment{
		UserID:    userID,
		Score:     score,
		Level:     level,
		Factors:   factors,
		Actions:   actionsForLevel(level),
		Timestamp: now,
	}
}

// activityScore computes a single activity's own weight: type base weight
// plus metadata-driven bonuses, capped.
func (r *RiskScorer) activityScore(activityType domain.ActivityType, metadata map[string]any) int {
	score := r.cfg.BaseWeights[string(activityType)]

	bonuses := r.cfg.Bonuses
	for key, bonus := range map[string]int{
		metaUnusualLocation: bonuses.UnusualLocation,
		metaUnusualTime:     bonuses.UnusualTime,
		metaRapidRequest:    bonuses.RapidRequest,
		metaSuspiciousUA:    bonuses.SuspiciousUserAgent,
		metaNewDevice:       bonuses.NewDevice,
		metaNewIP:           bonuses.NewIP,
	} {
		if flag, ok := metadata[key].(bool); ok && flag {
			score += bonus
		}
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score
}

func (r *RiskScorer) countSince(window []domain.Activity, since time.Time) int {
	count := 0
	for _, a := range window {
		if !a.Timestamp.Before(since) {
			count++
		}
	}
	return count
}

func (r *RiskScorer) countType(window []domain.Activity, t domain.ActivityType) int {
	count := 0
	for _, a := range window {
		if a.Type == t {
			count++
		}
	}
	return count
}

func (r *RiskScorer) loginPatternSuspicious(window []domain.Activity, now time.Time) bool {
	since := now.Add(-r.cfg.LoginBurstWindow)
	recent := 0
	logins := 0
	failures := 0
	for _, a := range window {
		switch a.Type {
		case domain.ActivityLoginAttempt, domain.ActivityFailedLogin:
			logins++
			if a.Type == domain.ActivityFailedLogin {
				failures++
			}
			if !a.Timestamp.Before(since) {
				recent++
			}
		}
	}
	if recent > r.cfg.LoginBurstCount {
		return true
	}
	if logins > 0 && float64(failures)/float64(logins) > r.cfg.FailureRatioThreshold {
		return true
	}
	return false
}

func (r *RiskScorer) distinctCountries(window []domain.Activity) int {
	seen := map[string]struct{}{}
	for _, a := range window {
		if country, ok := a.Metadata[metaCountry].(string); ok && country != "" {
			seen[country] = struct{}{}
		}
	}
	return len(seen)
}

// impossibleTravel walks consecutive geolocated activities and flags a
// great-circle speed above the configured ceiling.
func (r *RiskScorer) impossibleTravel(window []domain.Activity) bool {
	type point struct {
		lat, lon float64
		at       time.Time
	}
	var prev *point
	for _, a := range window {
		lat, latOK := numericMeta(a.Metadata, metaLatitude)
		lon, lonOK := numericMeta(a.Metadata, metaLongitude)
		if !latOK || !lonOK {
			continue
		}
		current := point{lat: lat, lon: lon, at: a.Timestamp}
		if prev != nil {
			hours := current.at.Sub(prev.at).Hours()
			if hours > 0 {
				distance := haversineKm(prev.lat, prev.lon, current.lat, current.lon)
				if distance/hours > r.cfg.MaxTravelSpeedKmh {
					return true
				}
			}
		}
		prev = &current
	}
	return false
}

// nightShare returns the fraction of activities timestamped 00:00-05:59 UTC.
func (r *RiskScorer) nightShare(window []domain.Activity) float64 {
	if len(window) == 0 {
		return 0
	}
	night := 0
	for _, a := range window {
		if hour := a.Timestamp.UTC().Hour(); hour < 6 {
			night++
		}
	}
	return float64(night) / float64(len(window))
}

// timingRegular reports bot-like regularity: the variance of inter-event
// gaps, in milliseconds squared, below the configured floor. Needs at least
// three events to be meaningful.
func (r *RiskScorer) timingRegular(window []domain.Activity) (bool, bool) {
	if len(window) < 3 {
		return false, false
	}

	gaps := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		gaps = append(gaps, float64(window[i].Timestamp.Sub(window[i-1].Timestamp).Milliseconds()))
	}

	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	variance := 0.0
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))

	return variance < r.cfg.TimingVarianceMs2, true
}

func (r *RiskScorer) level(score int) domain.RiskLevel {
	switch {
	case score >= r.cfg.CriticalThreshold:
		return domain.RiskLevelCritical
	case score >= r.cfg.HighThreshold:
		return domain.RiskLevelHigh
	case score >= r.cfg.MediumThreshold:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelLow
	}
}

func actionsForLevel(level domain.RiskLevel) []domain.RiskAction {
	switch level {
	case domain.RiskLevelCritical:
		return []domain.RiskAction{domain.ActionLockAccount, domain.ActionNotifyAdmin, domain.ActionRequireMFA}
	case domain.RiskLevelHigh:
		return []domain.RiskAction{domain.ActionRequireMFA, domain.ActionNotifyUser, domain.ActionIncreaseMonitoring}
	case domain.RiskLevelMedium:
		return []domain.RiskAction{domain.ActionNotifyUser, domain.ActionIncreaseMonitoring}
	default:
		return nil
	}
}

func (r *RiskScorer) publishAlert(ctx context.Context, assessment *domain.RiskAssessment) {
	if r.events == nil {
		return
	}
	event := domain.SecurityAlertEvent{
		EventID:    uuid.NewString(),
		UserID:     assessment.UserID,
		Level:      assessment.Level,
		Score:      assessment.Score,
		Factors:    assessment.Factors,
		Actions:    assessment.Actions,
		AssessedAt: assessment.Timestamp,
	}
	if err := r.events.PublishSecurityAlert(ctx, event); err != nil {
		r.logger.Warn("publish security alert failed",
			zap.String("user_id", assessment.UserID), zap.Error(err))
	}
}

func numericMeta(metadata map[string]any, key string) (float64, bool) {
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
