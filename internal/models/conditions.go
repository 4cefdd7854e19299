package models

import (
	"strconv"
	"strings"
	"time"
)

// Conditions is a point-in-time snapshot of the environment an alarm wakes into.
type Conditions struct {
	Weather    WeatherConditions  `json:"weather"`
	Traffic    TrafficConditions  `json:"traffic"`
	Calendar   CalendarConditions `json:"calendar"`
	ObservedAt time.Time          `json:"observedAt"`
}

type WeatherConditions struct {
	Condition           string   `json:"condition"` // e.g. "clear", "rain", "snow"
	TemperatureC        float64  `json:"temperatureC"`
	PrecipitationChance float64  `json:"precipitationChance"`
	Severe              bool     `json:"severe"`
	Alerts              []string `json:"alerts,omitempty"`
}

// TrafficSeverity is the commute severity class reported by the provider.
type TrafficSeverity string

const (
	TrafficLight    TrafficSeverity = "light"
	TrafficModerate TrafficSeverity = "moderate"
	TrafficHeavy    TrafficSeverity = "heavy"
	TrafficMajor    TrafficSeverity = "major"
)

type TrafficConditions struct {
	CommuteMinutes int             `json:"commuteMinutes"`
	DelayMinutes   int             `json:"delayMinutes"`
	Severity       TrafficSeverity `json:"severity"`
	Incidents      []string        `json:"incidents,omitempty"`
}

type CalendarConditions struct {
	EventCount      int        `json:"eventCount"`
	FirstEventTitle string     `json:"firstEventTitle,omitempty"`
	FirstEventAt    *time.Time `json:"firstEventAt,omitempty"`
	IsHoliday       bool       `json:"isHoliday"`
}

// ValueKind tags a [ConditionValue].
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindBool
)

// ConditionValue is a single typed reading taken from a [Conditions] snapshot.
type ConditionValue struct {
	Kind ValueKind
	Text string
	Num  float64
	Bool bool
}

func (v ConditionValue) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// ConditionFields lists the paths a [ConditionRule] may reference.
var ConditionFields = []string{
	"weather.condition",
	"weather.temperature",
	"weather.precipitation_chance",
	"weather.severe",
	"weather.alerts",
	"traffic.commute_minutes",
	"traffic.delay_minutes",
	"traffic.severity",
	"traffic.incidents",
	"calendar.event_count",
	"calendar.first_event_title",
	"calendar.is_holiday",
}

func text(s string) ConditionValue { return ConditionValue{Kind: KindText, Text: s} }

func number(n float64) ConditionValue { return ConditionValue{Kind: KindNumber, Num: n} }

func boolean(b bool) ConditionValue { return ConditionValue{Kind: KindBool, Bool: b} }

func joined(items []string) ConditionValue { return text(strings.Join(items, ",")) }

// Lookup resolves a dotted field path against the snapshot.
func (c Conditions) Lookup(field string) (ConditionValue, bool) {
	switch field {
	case "weather.condition":
		return text(c.Weather.Condition), true
	case "weather.temperature":
		return number(c.Weather.TemperatureC), true
	case "weather.precipitation_chance":
		return number(c.Weather.PrecipitationChance), true
	case "weather.severe":
		return boolean(c.Weather.Severe), true
	case "weather.alerts":
		return joined(c.Weather.Alerts), true
	case "traffic.commute_minutes":
		return number(float64(c.Traffic.CommuteMinutes)), true
	case "traffic.delay_minutes":
		return number(float64(c.Traffic.DelayMinutes)), true
	case "traffic.severity":
		return text(string(c.Traffic.Severity)), true
	case "traffic.incidents":
		return joined(c.Traffic.Incidents), true
	case "calendar.event_count":
		return number(float64(c.Calendar.EventCount)), true
	case "calendar.first_event_title":
		return text(c.Calendar.FirstEventTitle), true
	case "calendar.is_holiday":
		return boolean(c.Calendar.IsHoliday), true
	}
	return ConditionValue{}, false
}
