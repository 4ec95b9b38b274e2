package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App        AppSettings        `mapstructure:"app"`
	Postgres   PostgresSettings   `mapstructure:"postgres"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	Session    SessionSettings    `mapstructure:"session"`
	BruteForce BruteForceSettings `mapstructure:"brute_force"`
	Risk       RiskSettings       `mapstructure:"risk"`
	Device     DeviceSettings     `mapstructure:"device"`
	Scheduler  SchedulerSettings  `mapstructure:"scheduler"`
	Telemetry  TelemetrySettings  `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection shared by the attempt,
// lockout, device, and activity stores.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the audit-event and push-queue producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	PushTopic   string   `mapstructure:"push_topic"`
}

type JWTSettings struct {
	KeyDirectory string `mapstructure:"key_directory"`
	Issuer       string `mapstructure:"issuer"`
	Audience     string `mapstructure:"audience"`
}

// SessionSettings governs session lifetimes and sliding-window renewal.
type SessionSettings struct {
	TTL              time.Duration `mapstructure:"ttl"`
	RememberMeTTL    time.Duration `mapstructure:"remember_me_ttl"`
	RenewalThreshold float64       `mapstructure:"renewal_threshold"`
	// Lifetimes above this boundary are treated as remember-me sessions
	// when deciding the renewed access credential's TTL.
	RememberMeBoundary time.Duration `mapstructure:"remember_me_boundary"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

// BruteForceSettings carries the sliding-window thresholds and lock
// durations. Defaults mirror the historically tuned values; they are
// configuration, not hardcoded constants.
type BruteForceSettings struct {
	UserWindow      time.Duration `mapstructure:"user_window"`
	UserMaxAttempts int           `mapstructure:"user_max_attempts"`
	UserLockout     time.Duration `mapstructure:"user_lockout"`
	IPWindow        time.Duration `mapstructure:"ip_window"`
	IPMaxAttempts   int           `mapstructure:"ip_max_attempts"`
	IPLockout       time.Duration `mapstructure:"ip_lockout"`
	DelayStep       time.Duration `mapstructure:"delay_step"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
}

// RiskSettings holds every additive weight and threshold of the heuristic
// scorer so they can be tuned without redeploying logic.
type RiskSettings struct {
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	MaxActivities   int           `mapstructure:"max_activities"`

	BaseWeights map[string]int `mapstructure:"base_weights"`

	Bonuses RiskBonusSettings `mapstructure:"bonuses"`

	RapidRequestWindow    time.Duration `mapstructure:"rapid_request_window"`
	RapidRequestCount     int           `mapstructure:"rapid_request_count"`
	RapidRequestScore     int           `mapstructure:"rapid_request_score"`
	FailedLoginCount      int           `mapstructure:"failed_login_count"`
	FailedLoginScore      int           `mapstructure:"failed_login_score"`
	LoginBurstWindow      time.Duration `mapstructure:"login_burst_window"`
	LoginBurstCount       int           `mapstructure:"login_burst_count"`
	FailureRatioThreshold float64       `mapstructure:"failure_ratio_threshold"`
	LoginPatternScore     int           `mapstructure:"login_pattern_score"`
	AccountChangeCount    int           `mapstructure:"account_change_count"`
	AccountChangeScore    int           `mapstructure:"account_change_score"`
	CountryCount          int           `mapstructure:"country_count"`
	CountryScore          int           `mapstructure:"country_score"`
	MaxTravelSpeedKmh     float64       `mapstructure:"max_travel_speed_kmh"`
	ImpossibleTravelScore int           `mapstructure:"impossible_travel_score"`
	NightShareThreshold   float64       `mapstructure:"night_share_threshold"`
	NightActivityScore    int           `mapstructure:"night_activity_score"`
	TimingVarianceMs2     float64       `mapstructure:"timing_variance_ms2"`
	TimingRegularityScore int           `mapstructure:"timing_regularity_score"`

	MediumThreshold   int `mapstructure:"medium_threshold"`
	HighThreshold     int `mapstructure:"high_threshold"`
	CriticalThreshold int `mapstructure:"critical_threshold"`
}

// RiskBonusSettings are the metadata-driven additive bonuses.
type RiskBonusSettings struct {
	UnusualLocation     int `mapstructure:"unusual_location"`
	UnusualTime         int `mapstructure:"unusual_time"`
	RapidRequest        int `mapstructure:"rapid_request"`
	SuspiciousUserAgent int `mapstructure:"suspicious_user_agent"`
	NewDevice           int `mapstructure:"new_device"`
	NewIP               int `mapstructure:"new_ip"`
}

// DeviceSettings tunes fingerprint retention and anomaly detection.
type DeviceSettings struct {
	MaxDevices          int           `mapstructure:"max_devices"`
	Retention           time.Duration `mapstructure:"retention"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	VelocityWindow      time.Duration `mapstructure:"velocity_window"`
	VelocityMaxDevices  int           `mapstructure:"velocity_max_devices"`
}

// SchedulerSettings tunes the prayer notification scheduler.
type SchedulerSettings struct {
	RescanInterval  time.Duration `mapstructure:"rescan_interval"`
	ReminderMinutes int           `mapstructure:"reminder_minutes"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PORTAL")

	setDefaults(v)
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "islamic-portal-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "portal")
	v.SetDefault("postgres.password", "portal_password")
	v.SetDefault("postgres.database", "portal")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "portal")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "portal")
	v.SetDefault("kafka.push_topic", "portal.push.notifications")

	v.SetDefault("jwt.key_directory", "./secrets")
	v.SetDefault("jwt.issuer", "islamic-portal-auth")
	v.SetDefault("jwt.audience", "islamic-portal")

	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.remember_me_ttl", "2160h") // 90 days
	v.SetDefault("session.renewal_threshold", 0.5)
	v.SetDefault("session.remember_me_boundary", "48h")
	v.SetDefault("session.sweep_interval", "1h")

	v.SetDefault("brute_force.user_window", "15m")
	v.SetDefault("brute_force.user_max_attempts", 5)
	v.SetDefault("brute_force.user_lockout", "30m")
	v.SetDefault("brute_force.ip_window", "1h")
	v.SetDefault("brute_force.ip_max_attempts", 10)
	v.SetDefault("brute_force.ip_lockout", "2h")
	v.SetDefault("brute_force.delay_step", "5s")
	v.SetDefault("brute_force.max_delay", "5m")

	v.SetDefault("risk.retention_window", "24h")
	v.SetDefault("risk.max_activities", 1000)
	v.SetDefault("risk.base_weights", map[string]int{
		"login_attempt":         5,
		"failed_login":          20,
		"password_change":       15,
		"email_change":          20,
		"mfa_disable":           30,
		"unusual_location":      40,
		"unusual_time":          15,
		"rapid_requests":        10,
		"suspicious_user_agent": 15,
		"account_lockout":       35,
	})
	v.SetDefault("risk.bonuses.unusual_location", 20)
	v.SetDefault("risk.bonuses.unusual_time", 15)
	v.SetDefault("risk.bonuses.rapid_request", 10)
	v.SetDefault("risk.bonuses.suspicious_user_agent", 15)
	v.SetDefault("risk.bonuses.new_device", 25)
	v.SetDefault("risk.bonuses.new_ip", 20)
	v.SetDefault("risk.rapid_request_window", "5m")
	v.SetDefault("risk.rapid_request_count", 10)
	v.SetDefault("risk.rapid_request_score", 30)
	v.SetDefault("risk.failed_login_count", 3)
	v.SetDefault("risk.failed_login_score", 25)
	v.SetDefault("risk.login_burst_window", "5m")
	v.SetDefault("risk.login_burst_count", 5)
	v.SetDefault("risk.failure_ratio_threshold", 0.7)
	v.SetDefault("risk.login_pattern_score", 20)
	v.SetDefault("risk.account_change_count", 2)
	v.SetDefault("risk.account_change_score", 35)
	v.SetDefault("risk.country_count", 3)
	v.SetDefault("risk.country_score", 30)
	v.SetDefault("risk.max_travel_speed_kmh", 1000)
	v.SetDefault("risk.impossible_travel_score", 40)
	v.SetDefault("risk.night_share_threshold", 0.3)
	v.SetDefault("risk.night_activity_score", 15)
	v.SetDefault("risk.timing_variance_ms2", 1000)
	v.SetDefault("risk.timing_regularity_score", 20)
	v.SetDefault("risk.medium_threshold", 60)
	v.SetDefault("risk.high_threshold", 80)
	v.SetDefault("risk.critical_threshold", 90)

	v.SetDefault("device.max_devices", 5)
	v.SetDefault("device.retention", "720h") // 30 days
	v.SetDefault("device.similarity_threshold", 0.7)
	v.SetDefault("device.velocity_window", "1h")
	v.SetDefault("device.velocity_max_devices", 3)

	v.SetDefault("scheduler.rescan_interval", "6h")
	v.SetDefault("scheduler.reminder_minutes", 5)

	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "islamic-portal-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}
