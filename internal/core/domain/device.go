package domain

import "time"

// UnknownFingerprint is the sentinel used when fingerprint inputs are
// missing or malformed. Degrading to it never fails the request.
const UnknownFingerprint = "unknown"

// DeviceSignals is the raw bag of client-observable signals a fingerprint
// is derived from.
type DeviceSignals struct {
	UserAgent           string
	Accept              string
	AcceptLanguage      string
	AcceptEncoding      string
	Screen              string
	Viewport            string
	Timezone            string
	Language            string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
	IP                  string
}

// NormalizedSignals is the canonical form the fingerprint digest is computed
// over. The user agent is reduced to major versions so patch releases do not
// churn the fingerprint; screen and hardware hints keep it sensitive to
// device-class changes.
type NormalizedSignals struct {
	UserAgent           string `json:"user_agent"`
	Accept              string `json:"accept"`
	AcceptLanguage      string `json:"accept_language"`
	AcceptEncoding      string `json:"accept_encoding"`
	Screen              string `json:"screen"`
	Viewport            string `json:"viewport"`
	Timezone            string `json:"timezone"`
	Language            string `json:"language"`
	Platform            string `json:"platform"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	DeviceMemory        int    `json:"device_memory"`
	IP                  string `json:"ip"`
}

// FingerprintRecord is one known device for a user. Users keep a bounded set
// of recently seen records, evicted least-recently-seen first.
type FingerprintRecord struct {
	Fingerprint string            `json:"fingerprint"`
	Signals     NormalizedSignals `json:"signals"`
	LastSeen    time.Time         `json:"last_seen"`
}

// DeviceCheck is the advisory result of a suspicious-device evaluation.
// It feeds risk scoring and never blocks a request on its own.
type DeviceCheck struct {
	Suspicious bool
	Reason     string
}
