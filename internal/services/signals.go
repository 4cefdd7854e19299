package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/desertthunder/smartwake/internal/models"
)

// HTTPSleepAnalyzer asks a sleep analysis endpoint for a recommended wake time.
// A 204 response means the analyzer has nothing to suggest.
type HTTPSleepAnalyzer struct {
	client *Client
	path   string
}

func NewHTTPSleepAnalyzer(client *Client, path string) *HTTPSleepAnalyzer {
	if path == "" {
		path = "/sleep/recommendation"
	}
	return &HTTPSleepAnalyzer{client: client, path: path}
}

func (a *HTTPSleepAnalyzer) Recommend(ctx context.Context, alarm *models.Alarm) (*models.SleepRecommendation, error) {
	q := url.Values{"alarmId": {alarm.ID}, "time": {alarm.Time}}
	var rec models.SleepRecommendation
	ok, err := a.client.GetJSON(ctx, a.path+"?"+q.Encode(), &rec)
	if err != nil {
		return nil, fmt.Errorf("sleep analysis: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

const conditionsKey = "conditions"

// HTTPConditionProvider fetches the weather, traffic and calendar snapshot and
// caches it for ttl. When a holiday calendar is attached, the calendar's
// is-holiday flag is set from it.
type HTTPConditionProvider struct {
	client   *Client
	path     string
	cache    *cache.Cache
	holidays *HolidayCalendar
	now      func() time.Time
}

func NewHTTPConditionProvider(client *Client, path string, ttl time.Duration, holidays *HolidayCalendar) *HTTPConditionProvider {
	if path == "" {
		path = "/conditions"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HTTPConditionProvider{
		client:   client,
		path:     path,
		cache:    cache.New(ttl, 2*ttl),
		holidays: holidays,
		now:      time.Now,
	}
}

func (p *HTTPConditionProvider) CurrentConditions(ctx context.Context) (*models.Conditions, error) {
	if v, ok := p.cache.Get(conditionsKey); ok {
		c := v.(models.Conditions)
		return &c, nil
	}

	var c models.Conditions
	ok, err := p.client.GetJSON(ctx, p.path, &c)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if c.ObservedAt.IsZero() {
		c.ObservedAt = p.now()
	}
	if p.holidays != nil && p.holidays.IsHoliday(p.now()) {
		c.Calendar.IsHoliday = true
	}
	p.cache.SetDefault(conditionsKey, c)
	return &c, nil
}

// Invalidate drops the cached snapshot.
func (p *HTTPConditionProvider) Invalidate() { p.cache.Delete(conditionsKey) }
