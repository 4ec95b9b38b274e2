package domain

import (
	"fmt"
	"time"
)

// Prayer names the five daily prayers notifications are scheduled for.
type Prayer string

const (
	PrayerFajr    Prayer = "fajr"
	PrayerDhuhr   Prayer = "dhuhr"
	PrayerAsr     Prayer = "asr"
	PrayerMaghrib Prayer = "maghrib"
	PrayerIsha    Prayer = "isha"
)

// Prayers lists all prayers in chronological order.
var Prayers = []Prayer{PrayerFajr, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha}

// PrayerPreferences is the per-user scheduling state, always read fresh from
// the datastore at schedule time so a mid-day edit takes effect immediately.
type PrayerPreferences struct {
	UserID            string
	SubscriptionID    string
	Latitude          float64
	Longitude         float64
	Timezone          string
	CalculationMethod string
	Madhab            string
	Enabled           map[Prayer]bool
	ReminderMinutes   int
}

// PrayerTimes maps each prayer to its absolute time for one date.
type PrayerTimes map[Prayer]time.Time

// PushNotification is the payload handed to the delivery queue. DedupeKey is
// deterministic so redelivery and duplicate scheduling are naturally
// deduplicated downstream.
type PushNotification struct {
	SubscriptionID string         `json:"subscription_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	DedupeKey      string         `json:"dedupe_key"`
	Data           map[string]any `json:"data,omitempty"`
}

// PrayerJobKey identifies one scheduled timer: at most one live timer exists
// per (user, prayer, kind, date).
func PrayerJobKey(subscriptionID string, prayer Prayer, kind string, date time.Time) string {
	key := fmt.Sprintf("push-%s-%s-%s", subscriptionID, prayer, date.Format("2006-01-02"))
	if kind != "" && kind != "main" {
		key += "-" + kind
	}
	return key
}
