package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/messaging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/storage"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

const (
	dailyMessagesPrefix = "eco:dailyMessages:"
	dailyVoicePrefix    = "eco:dailyVoice:"
)

// LimitService maintains the per-user, per-feature daily counters and the
// gate decisions derived from them. Counters reset implicitly at local
// midnight: a stored record from any other date reads as zero.
type LimitService struct {
	durable     storage.Adapter
	broadcaster *messaging.PromptBroadcaster
	analytics   *AnalyticsService
	clock       scheduler.Clock
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
}

// NewLimitService creates the daily limit service.
func NewLimitService(
	durable storage.Adapter,
	broadcaster *messaging.PromptBroadcaster,
	analytics *AnalyticsService,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *LimitService {
	return &LimitService{
		durable:     durable,
		broadcaster: broadcaster,
		analytics:   analytics,
		clock:       clock,
		logger:      logger,
		perf:        perf,
	}
}

func featureKey(feature engagement.Feature, userID string) string {
	if feature == engagement.FeatureVoice {
		return dailyVoicePrefix + userID
	}
	return dailyMessagesPrefix + userID
}

// limitFor returns the numeric cap for a feature at a tier. Unlimited tiers
// are handled by the callers before this is consulted.
func limitFor(feature engagement.Feature, tier engagement.Tier) int {
	switch feature {
	case engagement.FeatureVoice:
		if tier == engagement.TierEssentials {
			return config.EssentialsVoiceLimit
		}
		return config.FreeVoiceLimit
	default:
		if tier == engagement.TierEssentials {
			return config.EssentialsMessageLimit
		}
		return config.FreeMessageLimit
	}
}

// readRecord loads today's counter. A missing record, a malformed record, or
// a record from another date all read as zero; malformed data is never
// propagated to callers.
func (s *LimitService) readRecord(feature engagement.Feature, userID, today string) engagement.DailyRecord {
	raw, found, err := s.durable.Get(featureKey(feature, userID))
	if err != nil {
		s.logger.Engine().Warn("Daily counter read failed, treating as zero", "feature", string(feature), "userId", userID, "error", err.Error())
		return engagement.DailyRecord{Date: today}
	}
	if !found {
		return engagement.DailyRecord{Date: today}
	}

	var record engagement.DailyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Count < 0 {
		s.logger.Engine().Warn("Discarding malformed daily counter", "feature", string(feature), "userId", userID)
		return engagement.DailyRecord{Date: today}
	}
	if record.Date != today {
		return engagement.DailyRecord{Date: today}
	}
	return record
}

func (s *LimitService) writeRecord(feature engagement.Feature, userID string, record engagement.DailyRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.durable.Set(featureKey(feature, userID), string(raw))
}

func status(count int, tier engagement.Tier, feature engagement.Feature) engagement.LimitStatus {
	if tier.Unlimited() {
		return engagement.LimitStatus{Count: count, Limit: 0, Unlimited: true}
	}
	limit := limitFor(feature, tier)

	// The soft prompt is a messages-only nudge below the hard cap; the voice
	// counter has no soft tier, and at the cap the hard gate takes over.
	soft := feature == engagement.FeatureMessages &&
		float64(count) >= float64(limit)*config.SoftPromptRatio &&
		count < limit

	return engagement.LimitStatus{
		Count:        count,
		Limit:        limit,
		Unlimited:    false,
		ReachedLimit: count >= limit,
		SoftPrompt:   soft,
	}
}

// Read returns the current gate decision without consuming usage.
func (s *LimitService) Read(userID string, feature engagement.Feature, tier engagement.Tier) (engagement.LimitStatus, error) {
	if !feature.Known() {
		return engagement.LimitStatus{}, fmt.Errorf("unknown feature %q", feature)
	}

	marker := s.perf.StartOperation("limits_read")
	defer marker.Complete()

	if tier.Unlimited() {
		marker.SetSuccess(true)
		return status(0, tier, feature), nil
	}

	today := engagement.FormatDate(s.clock.Now())
	record := s.readRecord(feature, userID, today)
	marker.SetSuccess(true)
	return status(record.Count, tier, feature), nil
}

// Increment consumes one unit of usage and returns the post-increment gate
// decision. When the increment is the one that reaches the cap, a
// limit-reached notification fires exactly once for that day.
func (s *LimitService) Increment(userID, sessionID string, feature engagement.Feature, tier engagement.Tier) (engagement.LimitStatus, error) {
	if !feature.Known() {
		return engagement.LimitStatus{}, fmt.Errorf("unknown feature %q", feature)
	}

	marker := s.perf.StartOperation("limits_increment")
	defer marker.Complete()

	if tier.Unlimited() {
		marker.SetSuccess(true)
		return status(0, tier, feature), nil
	}

	today := engagement.FormatDate(s.clock.Now())
	record := s.readRecord(feature, userID, today)

	limit := limitFor(feature, tier)
	if record.Count >= limit {
		// Already at the cap; reject without advancing the counter so the
		// notification stays fire-once.
		marker.SetSuccess(true)
		return status(record.Count, tier, feature), nil
	}

	record.Count++
	record.Date = today
	if err := s.writeRecord(feature, userID, record); err != nil {
		marker.SetError(err)
		return engagement.LimitStatus{}, fmt.Errorf("failed to store daily counter: %w", err)
	}

	result := status(record.Count, tier, feature)
	if result.ReachedLimit {
		// This increment is the crossing: notify the session over SSE and
		// hand the analytics sink its discrete limit-hit event, each once.
		if s.broadcaster != nil && sessionID != "" {
			s.broadcaster.BroadcastLimitHit(sessionID, string(feature), record.Count, limit)
		}
		if s.analytics != nil {
			s.analytics.Enqueue(&events.Event{
				SessionID:  sessionID,
				GuestID:    userID,
				Type:       events.LimitHit,
				OccurredAt: s.clock.Now(),
				Meta:       events.LimitMetadata{Feature: string(feature), Count: record.Count, Limit: limit},
			})
		}
		s.logger.Engine().Info("Daily limit reached", "feature", string(feature), "userId", userID, "limit", limit)
	}

	marker.SetSuccess(true)
	return result, nil
}

// SweepRollovers removes stale counter records left over from previous days.
// The reset is already implicit on read; the sweep keeps the durable tier
// from accumulating dead keys. Runs from the scheduler.
func (s *LimitService) SweepRollovers(now time.Time) {
	marker := s.perf.StartOperation("limits_rollover_sweep")
	defer marker.Complete()

	today := engagement.FormatDate(now)
	var swept int
	for _, prefix := range []string{dailyMessagesPrefix, dailyVoicePrefix} {
		keys, err := s.durable.Keys(prefix)
		if err != nil {
			s.logger.Engine().Warn("Rollover sweep key listing failed", "prefix", prefix, "error", err.Error())
			continue
		}
		for _, key := range keys {
			raw, found, err := s.durable.Get(key)
			if err != nil || !found {
				continue
			}
			var record engagement.DailyRecord
			if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Date != today {
				if err := s.durable.Remove(key); err == nil {
					swept++
				}
			}
		}
	}

	if swept > 0 {
		s.logger.Engine().Info("Rollover sweep completed", "swept", swept, "date", today)
	}
	marker.SetSuccess(true)
}

// FeatureFromString parses a feature name from the wire.
func FeatureFromString(raw string) (engagement.Feature, error) {
	feature := engagement.Feature(strings.ToLower(strings.TrimSpace(raw)))
	if !feature.Known() {
		return "", fmt.Errorf("unknown feature %q", raw)
	}
	return feature, nil
}
