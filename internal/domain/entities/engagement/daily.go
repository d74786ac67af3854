// Package engagement provides domain entities for the anonymous-visitor
// engagement engine: daily usage limits, activity streaks, and the
// conversion-trigger state machine.
package engagement

import "time"

// DateLayout is the calendar-date format used for all day-scoped state.
// Dates are evaluated in the engine's local timezone.
const DateLayout = "2006-01-02"

// Feature identifies a daily-limited feature.
type Feature string

const (
	FeatureMessages Feature = "messages"
	FeatureVoice    Feature = "voice"
)

// Known reports whether f is a recognized limited feature.
func (f Feature) Known() bool {
	return f == FeatureMessages || f == FeatureVoice
}

// Tier is a subscription level gating numeric usage limits.
type Tier string

const (
	TierFree       Tier = "free"
	TierEssentials Tier = "essentials"
	TierPremium    Tier = "premium"
	TierVIP        Tier = "vip"
)

// Unlimited reports whether the tier short-circuits daily limits entirely.
// No counter is maintained for unlimited tiers.
func (t Tier) Unlimited() bool {
	return t == TierPremium || t == TierVIP
}

// DailyRecord is a date-scoped counter. Count is meaningful only while Date
// equals the current local date; a stale record reads as zero.
type DailyRecord struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LimitStatus is the gate decision exposed to callers.
type LimitStatus struct {
	Count        int  `json:"count"`
	Limit        int  `json:"limit"`
	Unlimited    bool `json:"unlimited"`
	ReachedLimit bool `json:"reachedLimit"`
	SoftPrompt   bool `json:"softPrompt"`
}

// FormatDate renders a time as a local calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
