package prayertime

import (
	"testing"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

func dubaiDate() time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestCalculateOrdering(t *testing.T) {
	calc := New()

	times, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "dubai", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	order := []domain.Prayer{
		domain.PrayerFajr,
		domain.PrayerDhuhr,
		domain.PrayerAsr,
		domain.PrayerMaghrib,
		domain.PrayerIsha,
	}
	for i := 1; i < len(order); i++ {
		before, after := times[order[i-1]], times[order[i]]
		if !before.Before(after) {
			t.Fatalf("%s (%v) not before %s (%v)", order[i-1], before, order[i], after)
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := New()

	first, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	second, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	for _, prayer := range domain.Prayers {
		if !first[prayer].Equal(second[prayer]) {
			t.Fatalf("%s drifted between runs: %v vs %v", prayer, first[prayer], second[prayer])
		}
	}
}

func TestCalculateTimesFallOnRequestedDay(t *testing.T) {
	calc := New()

	times, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	loc, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	for prayer, at := range times {
		local := at.In(loc)
		if local.Year() != 2025 || local.Month() != time.March || local.Day() != 1 {
			t.Fatalf("%s fell outside the requested day: %v", prayer, local)
		}
	}

	// Sanity bounds: dhuhr near local midday, fajr before sunrise hours.
	dhuhr := times[domain.PrayerDhuhr].In(loc)
	if dhuhr.Hour() < 11 || dhuhr.Hour() > 13 {
		t.Fatalf("dhuhr = %v, expected near local midday", dhuhr)
	}
	fajr := times[domain.PrayerFajr].In(loc)
	if fajr.Hour() < 4 || fajr.Hour() > 6 {
		t.Fatalf("fajr = %v, expected in the early morning", fajr)
	}
}

func TestHanafiAsrIsLater(t *testing.T) {
	calc := New()

	shafi, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	hanafi, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "hanafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if !hanafi[domain.PrayerAsr].After(shafi[domain.PrayerAsr]) {
		t.Fatalf("hanafi asr (%v) should be later than shafi asr (%v)",
			hanafi[domain.PrayerAsr], shafi[domain.PrayerAsr])
	}

	// The madhab only affects asr.
	if !hanafi[domain.PrayerDhuhr].Equal(shafi[domain.PrayerDhuhr]) {
		t.Fatalf("dhuhr changed with madhab: %v vs %v", hanafi[domain.PrayerDhuhr], shafi[domain.PrayerDhuhr])
	}
}

func TestUmmAlQuraIshaIsFixedInterval(t *testing.T) {
	calc := New()

	times, err := calc.Calculate(21.4225, 39.8262, dubaiDate(), "Asia/Riyadh", "ummalqura", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	gap := times[domain.PrayerIsha].Sub(times[domain.PrayerMaghrib])
	if gap != 90*time.Minute {
		t.Fatalf("isha gap = %v, want the fixed 90m interval", gap)
	}
}

func TestUnknownMethodFallsBackToDefault(t *testing.T) {
	calc := New()

	unknown, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "no-such-method", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	mwl, err := calc.Calculate(25.2048, 55.2708, dubaiDate(), "Asia/Dubai", "mwl", "shafi")
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	for _, prayer := range domain.Prayers {
		if !unknown[prayer].Equal(mwl[prayer]) {
			t.Fatalf("%s differs from the default method: %v vs %v", prayer, unknown[prayer], mwl[prayer])
		}
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	calc := New()

	if _, err := calc.Calculate(91, 55, dubaiDate(), "UTC", "mwl", "shafi"); err == nil {
		t.Fatalf("expected error for out-of-range latitude")
	}
	if _, err := calc.Calculate(25, 181, dubaiDate(), "UTC", "mwl", "shafi"); err == nil {
		t.Fatalf("expected error for out-of-range longitude")
	}
	if _, err := calc.Calculate(25, 55, dubaiDate(), "Not/AZone", "mwl", "shafi"); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestCalculatePolarLatitudeFails(t *testing.T) {
	calc := New()

	// Above the arctic circle in high summer the sun never reaches the
	// twilight angles.
	midsummer := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	if _, err := calc.Calculate(78.2232, 15.6267, midsummer, "UTC", "mwl", "shafi"); err == nil {
		t.Fatalf("expected error for polar midsummer")
	}
}
