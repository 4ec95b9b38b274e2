// Package prayertime computes daily prayer times from solar position. The
// calculator is pure: identical inputs always produce identical outputs.
package prayertime

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// methodParams carries the twilight angles of a calculation method. An
// ishaInterval of zero means isha uses its angle; otherwise isha is a fixed
// offset after maghrib.
type methodParams struct {
	fajrAngle    float64
	ishaAngle    float64
	ishaInterval time.Duration
}

var methods = map[string]methodParams{
	"mwl":          {fajrAngle: 18, ishaAngle: 17},
	"isna":         {fajrAngle: 15, ishaAngle: 15},
	"egypt":        {fajrAngle: 19.5, ishaAngle: 17.5},
	"karachi":      {fajrAngle: 18, ishaAngle: 18},
	"ummalqura":    {fajrAngle: 18.5, ishaInterval: 90 * time.Minute},
	"dubai":        {fajrAngle: 18.2, ishaAngle: 18.2},
	"northamerica": {fajrAngle: 15, ishaAngle: 15},
}

const defaultMethod = "mwl"

// horizonAngle accounts for atmospheric refraction and the solar disc at
// sunrise and sunset.
const horizonAngle = 0.833

// Calculator computes prayer times for a coordinate and date.
type Calculator struct{}

// New constructs a Calculator.
func New() *Calculator {
	return &Calculator{}
}

// Calculate returns the five prayer times for the given location and date.
// The date's year, month, and day are interpreted in the given timezone.
func (c *Calculator) Calculate(lat, lon float64, date time.Time, timezone, method, madhab string) (domain.PrayerTimes, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("prayertime: coordinates out of range (%f, %f)", lat, lon)
	}

	loc := time.UTC
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("prayertime: unknown timezone %q: %w", timezone, err)
		}
		loc = parsed
	}

	params, ok := methods[normalizeName(method)]
	if !ok {
		params = methods[defaultMethod]
	}

	asrFactor := 1.0
	if normalizeName(madhab) == "hanafi" {
		asrFactor = 2.0
	}

	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	// Timezone offset in hours for this specific date, honoring DST.
	_, offsetSeconds := midnight.Zone()
	tzOffset := float64(offsetSeconds) / 3600

	jd := julianDay(local.Year(), int(local.Month()), local.Day())
	decl, eqt := solarPosition(jd)

	dhuhr := 12 + tzOffset - lon/15 - eqt

	fajrOffset, err := hourAngle(params.fajrAngle, lat, decl)
	if err != nil {
		return nil, fmt.Errorf("prayertime: fajr: %w", err)
	}
	sunsetOffset, err := hourAngle(horizonAngle, lat, decl)
	if err != nil {
		return nil, fmt.Errorf("prayertime: sunset: %w", err)
	}
	asrOffset, err := asrHourAngle(asrFactor, lat, decl)
	if err != nil {
		return nil, fmt.Errorf("prayertime: asr: %w", err)
	}

	times := domain.PrayerTimes{
		domain.PrayerFajr:    clockTime(midnight, dhuhr-fajrOffset),
		domain.PrayerDhuhr:   clockTime(midnight, dhuhr),
		domain.PrayerAsr:     clockTime(midnight, dhuhr+asrOffset),
		domain.PrayerMaghrib: clockTime(midnight, dhuhr+sunsetOffset),
	}

	if params.ishaInterval > 0 {
		times[domain.PrayerIsha] = times[domain.PrayerMaghrib].Add(params.ishaInterval)
	} else {
		ishaOffset, err := hourAngle(params.ishaAngle, lat, decl)
		if err != nil {
			return nil, fmt.Errorf("prayertime: isha: %w", err)
		}
		times[domain.PrayerIsha] = clockTime(midnight, dhuhr+ishaOffset)
	}

	return times, nil
}

// julianDay converts a calendar date to its Julian day number at noon.
func julianDay(year, month, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := year / 100
	b := 2 - a + a/4
	return math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5
}

// solarPosition returns the sun's declination (degrees) and the equation of
// time (hours) for a Julian day, using the standard low-precision series.
func solarPosition(jd float64) (decl, eqt float64) {
	d := jd - 2451545.0

	g := fixAngle(357.529 + 0.98560028*d)
	q := fixAngle(280.459 + 0.98564736*d)
	l := fixAngle(q + 1.915*sinDeg(g) + 0.020*sinDeg(2*g))

	e := 23.439 - 0.00000036*d

	decl = asinDeg(sinDeg(e) * sinDeg(l))

	ra := math.Atan2(cosDeg(e)*sinDeg(l), cosDeg(l)) * 180 / math.Pi / 15
	ra = fixHour(ra)
	eqt = q/15 - ra
	if eqt > 12 {
		eqt -= 24
	} else if eqt < -12 {
		eqt += 24
	}
	return decl, eqt
}

// hourAngle returns the hours between midday and the moment the sun reaches
// the given depression angle below the horizon.
func hourAngle(angle, lat, decl float64) (float64, error) {
	cosH := (-sinDeg(angle) - sinDeg(decl)*sinDeg(lat)) / (cosDeg(decl) * cosDeg(lat))
	if cosH < -1 || cosH > 1 {
		return 0, fmt.Errorf("sun never reaches angle %.2f at latitude %.2f", angle, lat)
	}
	return math.Acos(cosH) * 180 / math.Pi / 15, nil
}

// asrHourAngle returns the hours after midday when an object's shadow equals
// factor times its height plus its noon shadow.
func asrHourAngle(factor, lat, decl float64) (float64, error) {
	angle := -atanDeg(1 / (factor + tanDeg(math.Abs(lat-decl))))
	return hourAngle(angle, lat, decl)
}

func clockTime(midnight time.Time, hours float64) time.Time {
	return midnight.Add(time.Duration(hours * float64(time.Hour))).Round(time.Minute)
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}

func fixAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func fixHour(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

func sinDeg(d float64) float64  { return math.Sin(d * math.Pi / 180) }
func cosDeg(d float64) float64  { return math.Cos(d * math.Pi / 180) }
func tanDeg(d float64) float64  { return math.Tan(d * math.Pi / 180) }
func asinDeg(x float64) float64 { return math.Asin(x) * 180 / math.Pi }
func atanDeg(x float64) float64 { return math.Atan(x) * 180 / math.Pi }

var _ port.PrayerTimeCalculator = (*Calculator)(nil)
