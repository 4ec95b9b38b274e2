package domain

import "time"

// ActivityType enumerates security-relevant actions fed into risk scoring.
type ActivityType string

const (
	ActivityLoginAttempt        ActivityType = "login_attempt"
	ActivityFailedLogin         ActivityType = "failed_login"
	ActivityPasswordChange      ActivityType = "password_change"
	ActivityEmailChange         ActivityType = "email_change"
	ActivityMFADisable          ActivityType = "mfa_disable"
	ActivityUnusualLocation     ActivityType = "unusual_location"
	ActivityUnusualTime         ActivityType = "unusual_time"
	ActivityRapidRequests       ActivityType = "rapid_requests"
	ActivitySuspiciousUserAgent ActivityType = "suspicious_user_agent"
	ActivityAccountLockout      ActivityType = "account_lockout"
)

// Activity is one timestamped security-relevant event for a user. Retained
// activities are bounded by count and a retention window; risk is always
// recomputed from the retained window, never from full history.
type Activity struct {
	UserID    string         `json:"user_id"`
	Type      ActivityType   `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RiskScore int            `json:"risk_score"`
}

// RiskLevel classifies an aggregate risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskAction is a recommended response to an assessment. Actions are
// advisory; calling code chooses whether to enforce them.
type RiskAction string

const (
	ActionLockAccount        RiskAction = "lock_account"
	ActionNotifyAdmin        RiskAction = "notify_admin"
	ActionRequireMFA         RiskAction = "require_mfa"
	ActionNotifyUser         RiskAction = "notify_user"
	ActionIncreaseMonitoring RiskAction = "increase_monitoring"
)

// RiskAssessment is the deterministic output of scoring a user's retained
// activity window: identical histories always yield identical assessments.
type RiskAssessment struct {
	UserID    string
	Score     int
	Level     RiskLevel
	Factors   []string
	Actions   []RiskAction
	Timestamp time.Time
}
