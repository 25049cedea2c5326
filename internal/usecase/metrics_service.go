package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"gitlab.com/voxlane/api/voicedash/internal/access"
	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// Metric periods accepted by Compute.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodCustom    = "custom"
)

// MetricsService aggregates dashboard metrics over the caller's visible
// conversations. Restricted users get numbers computed from their slice of
// the data only.
type MetricsService struct {
	convRepo storage.ConversationRepo
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(convRepo storage.ConversationRepo) *MetricsService {
	return &MetricsService{convRepo: convRepo}
}

// Compute aggregates metrics for the given period. An empty period covers all
// time. PeriodCustom requires both bounds. A filtered set that matches
// nothing yields all-zero metrics, never an error and never NaN.
func (s *MetricsService) Compute(ctx context.Context, user *model.User, period string, customStart, customEnd *time.Time) (*model.DashboardMetrics, error) {
	now := utils.Now()

	var windowStart, windowEnd *time.Time
	switch period {
	case "", PeriodToday, PeriodYesterday, PeriodWeek:
		windowStart, windowEnd = periodBounds(period, now)
	case PeriodCustom:
		if customStart == nil || customEnd == nil {
			return nil, fmt.Errorf("%w: custom period requires start_date and end_date", apperrors.ErrBadRequest)
		}
		windowStart, windowEnd = customStart, customEnd
	default:
		return nil, fmt.Errorf("%w: unknown period %q", apperrors.ErrBadRequest, period)
	}

	// Yesterday always participates as the comparison baseline, so fetch wide
	// enough to cover both the window and the previous day.
	fetchStart := windowStart
	yesterdayStart, _ := utils.DayBounds(now.Add(-24 * time.Hour))
	if fetchStart != nil && fetchStart.After(yesterdayStart) {
		fetchStart = &yesterdayStart
	}

	convs, err := s.convRepo.FindRange(ctx, fetchStart, nil)
	if err != nil {
		return nil, err
	}
	visible := access.VisibleConversations(user, convs)

	window := filterWindow(visible, windowStart, windowEnd)

	todayStart, todayEnd := utils.DayBounds(now)
	yStart, yEnd := utils.DayBounds(now.Add(-24 * time.Hour))
	todays := filterWindow(visible, &todayStart, &todayEnd)
	yesterdays := filterWindow(visible, &yStart, &yEnd)

	metrics := &model.DashboardMetrics{
		TotalConversations:  len(window),
		TodaysConversations: len(todays),
		TodaysChangePercent: changePercent(float64(len(todays)), float64(len(yesterdays))),
		AvgSentiment:        round2(avgSentiment(window)),
		TotalDuration:       totalDuration(window),
		TotalAgents:         len(distinctAgents(window)),
	}
	metrics.SentimentChangePercent = round1(sentimentChange(window, yesterdays))
	metrics.AgentsChangePercent = round1(changePercent(
		float64(len(distinctAgents(window))),
		float64(len(distinctAgents(yesterdays))),
	))
	metrics.TodaysChangePercent = round1(metrics.TodaysChangePercent)

	return metrics, nil
}

// periodBounds returns the [start, end) window of a named period. The empty
// period is unbounded.
func periodBounds(period string, now time.Time) (*time.Time, *time.Time) {
	switch period {
	case PeriodToday:
		start, end := utils.DayBounds(now)
		return &start, &end
	case PeriodYesterday:
		start, end := utils.DayBounds(now.Add(-24 * time.Hour))
		return &start, &end
	case PeriodWeek:
		_, end := utils.DayBounds(now)
		start := end.Add(-7 * 24 * time.Hour)
		return &start, &end
	default:
		return nil, nil
	}
}

// filterWindow keeps conversations whose created_at falls in [start, end).
// Nil bounds are open.
func filterWindow(convs []model.Conversation, start, end *time.Time) []model.Conversation {
	if start == nil && end == nil {
		return convs
	}
	out := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if start != nil && c.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && !c.CreatedAt.Before(*end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func avgSentiment(convs []model.Conversation) float64 {
	sum := 0.0
	n := 0
	for _, c := range convs {
		if c.Sentiment == nil {
			continue
		}
		sum += *c.Sentiment
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sentimentChange(window, yesterdays []model.Conversation) float64 {
	current := avgSentiment(window)
	baseline := avgSentiment(yesterdays)
	if baseline == 0 {
		return 0
	}
	return (current - baseline) / baseline * 100
}

func totalDuration(convs []model.Conversation) int {
	total := 0
	for _, c := range convs {
		total += c.Duration
	}
	return total
}

func distinctAgents(convs []model.Conversation) map[string]struct{} {
	agents := make(map[string]struct{})
	for _, c := range convs {
		if c.Agent != "" {
			agents[c.Agent] = struct{}{}
		}
	}
	return agents
}

// changePercent returns the relative change from baseline to current. A zero
// baseline with a nonzero current reads as +100%; zero against zero is 0.
func changePercent(current, baseline float64) float64 {
	if baseline > 0 {
		return (current - baseline) / baseline * 100
	}
	if current > 0 {
		return 100
	}
	return 0
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
