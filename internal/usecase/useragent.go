package usecase

import (
	"regexp"
	"strings"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

// Coarse user-agent classification. Intentionally approximate pattern
// matching, not a full UA parser: the result feeds display and device
// grouping, never authorization.

var uaVersionPattern = regexp.MustCompile(`([A-Za-z]+)/(\d+)(?:\.[\d.]+)?`)

func classifyDevice(userAgent string) domain.DeviceInfo {
	ua := strings.ToLower(userAgent)

	info := domain.DeviceInfo{
		Platform: "desktop",
		Browser:  "unknown",
		OS:       "unknown",
	}

	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		info.Browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		info.Browser = "Opera"
	case strings.Contains(ua, "chrome"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "safari"):
		info.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "android"):
		info.OS = "Android"
		info.Platform = "mobile"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		info.OS = "iOS"
		info.Platform = "mobile"
	case strings.Contains(ua, "windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		info.OS = "macOS"
	case strings.Contains(ua, "linux"):
		info.OS = "Linux"
	}

	return info
}

// normalizeUserAgent strips minor and patch version components so patch
// releases do not churn derived fingerprints, while major browser family
// changes still do.
func normalizeUserAgent(userAgent string) string {
	return uaVersionPattern.ReplaceAllString(userAgent, "$1/$2")
}

var botUAPattern = regexp.MustCompile(`(?i)(curl|wget|python-requests|scrapy|bot|spider|crawler|headless)`)

// isSuspiciousUserAgent flags automation tooling. Advisory only.
func isSuspiciousUserAgent(userAgent string) bool {
	trimmed := strings.TrimSpace(userAgent)
	if trimmed == "" {
		return true
	}
	return botUAPattern.MatchString(trimmed)
}
