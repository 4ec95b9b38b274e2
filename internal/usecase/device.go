package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
)

// DeviceFingerprinter derives stable device fingerprints from request
// signals and tracks a bounded set of known devices per user. All of its
// outputs are advisory signals for risk scoring.
type DeviceFingerprinter struct {
	cfg     config.DeviceSettings
	devices port.DeviceStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewDeviceFingerprinter constructs a DeviceFingerprinter.
func NewDeviceFingerprinter(cfg config.DeviceSettings, devices port.DeviceStore, log *zap.Logger) *DeviceFingerprinter {
	if log == nil {
		log = zap.NewNop()
	}
	fp := &DeviceFingerprinter{
		cfg:     cfg,
		devices: devices,
		logger:  log,
	}
	fp.now = func() time.Time { return time.Now().UTC() }
	return fp
}

// WithClock overrides the internal clock for deterministic tests.
func (f *DeviceFingerprinter) WithClock(clock func() time.Time) {
	if clock != nil {
		f.now = clock
	}
}

// GenerateFingerprint normalizes the raw signals and hashes the canonical
// form to a fixed-length digest. Version numbers are reduced to majors so
// patch releases do not churn the fingerprint, while screen and hardware
// hints keep it sensitive to device-class changes. Missing or malformed
// inputs degrade to the unknown fingerprint instead of failing the request.
func (f *DeviceFingerprinter) GenerateFingerprint(signals domain.DeviceSignals) domain.FingerprintRecord {
	now := f.now()
	normalized := normalizeSignals(signals)

	if normalized.UserAgent == "" && normalized.IP == "" {
		return domain.FingerprintRecord{
			Fingerprint: domain.UnknownFingerprint,
			Signals:     normalized,
			LastSeen:    now,
		}
	}

	canonical, err := json.Marshal(normalized)
	if err != nil {
		f.logger.Warn("canonicalize device signals failed", zap.Error(err))
		return domain.FingerprintRecord{
			Fingerprint: domain.UnknownFingerprint,
			Signals:     normalized,
			LastSeen:    now,
		}
	}

	return domain.FingerprintRecord{
		Fingerprint: security.HashFingerprint(canonical),
		Signals:     normalized,
		LastSeen:    now,
	}
}

// IsKnownDevice reports whether the fingerprint is in the user's bounded set
// of recently seen devices. Unknown fingerprints are never known.
func (f *DeviceFingerprinter) IsKnownDevice(ctx context.Context, userID, fingerprint string) (bool, error) {
	if fingerprint == "" || fingerprint == domain.UnknownFingerprint {
		return false, nil
	}

	known, err := f.devices.List(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list known devices: %w", err)
	}
	for _, record := range known {
		if record.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// RememberDevice upserts the record into the user's device set, bumping its
// last-seen position and evicting the least recently seen entry past the cap.
func (f *DeviceFingerprinter) RememberDevice(ctx context.Context, userID string, record domain.FingerprintRecord) error {
	if record.Fingerprint == "" || record.Fingerprint == domain.UnknownFingerprint {
		return nil
	}
	if err := f.devices.Upsert(ctx, userID, record, f.cfg.MaxDevices, f.cfg.Retention); err != nil {
		return fmt.Errorf("remember device: %w", err)
	}
	return nil
}

// CheckSuspiciousDevice runs the similarity and velocity checks against the
// user's known devices. A near-match that is not an exact fingerprint match
// suggests spoofing; many distinct devices inside the velocity window
// suggests automated churn.
func (f *DeviceFingerprinter) CheckSuspiciousDevice(ctx context.Context, userID string, candidate domain.FingerprintRecord) (domain.DeviceCheck, error) {
	known, err := f.devices.List(ctx, userID)
	if err != nil {
		return domain.DeviceCheck{}, fmt.Errorf("list known devices: %w", err)
	}

	for _, record := range known {
		if record.Fingerprint == candidate.Fingerprint {
			continue
		}
		if signalAgreement(record.Signals, candidate.Signals) >= f.cfg.SimilarityThreshold {
			return domain.DeviceCheck{Suspicious: true, Reason: "similar_device"}, nil
		}
	}

	cutoff := f.now().Add(-f.cfg.VelocityWindow)
	recent := 0
	for _, record := range known {
		if !record.LastSeen.Before(cutoff) {
			recent++
		}
	}
	if recent > f.cfg.VelocityMaxDevices {
		return domain.DeviceCheck{Suspicious: true, Reason: "rapid_device_changes"}, nil
	}

	return domain.DeviceCheck{}, nil
}

func normalizeSignals(signals domain.DeviceSignals) domain.NormalizedSignals {
	return domain.NormalizedSignals{
		UserAgent:           normalizeUserAgent(signals.UserAgent),
		Accept:              strings.TrimSpace(signals.Accept),
		AcceptLanguage:      strings.ToLower(strings.TrimSpace(signals.AcceptLanguage)),
		AcceptEncoding:      strings.ToLower(strings.TrimSpace(signals.AcceptEncoding)),
		Screen:              strings.TrimSpace(signals.Screen),
		Viewport:            strings.TrimSpace(signals.Viewport),
		Timezone:            strings.TrimSpace(signals.Timezone),
		Language:            strings.ToLower(strings.TrimSpace(signals.Language)),
		Platform:            strings.TrimSpace(signals.Platform),
		HardwareConcurrency: signals.HardwareConcurrency,
		DeviceMemory:        signals.DeviceMemory,
		IP:                  strings.TrimSpace(signals.IP),
	}
}

// signalAgreement computes the field-wise match ratio between two normalized
// signal sets, over fields present on at least one side.
func signalAgreement(a, b domain.NormalizedSignals) float64 {
	comparable := 0
	matches := 0

	compareString := func(x, y string) {
		if x == "" && y == "" {
			return
		}
		comparable++
		if x == y {
			matches++
		}
	}
	compareInt := func(x, y int) {
		if x == 0 && y == 0 {
			return
		}
		comparable++
		if x == y {
			matches++
		}
	}

	compareString(a.UserAgent, b.UserAgent)
	compareString(a.Accept, b.Accept)
	compareString(a.AcceptLanguage, b.AcceptLanguage)
	compareString(a.AcceptEncoding, b.AcceptEncoding)
	compareString(a.Screen, b.Screen)
	compareString(a.Viewport, b.Viewport)
	compareString(a.Timezone, b.Timezone)
	compareString(a.Language, b.Language)
	compareString(a.Platform, b.Platform)
	compareInt(a.HardwareConcurrency, b.HardwareConcurrency)
	compareInt(a.DeviceMemory, b.DeviceMemory)
	compareString(a.IP, b.IP)

	if comparable == 0 {
		return 0
	}
	return float64(matches) / float64(comparable)
}
