package model

import (
	"bookit/pkg/config"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const TimeOfDayLayout = "15:04"

var timeOfDayRegex = regexp.MustCompile(`^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`)

// AvailabilityRule is a recurring weekly window of a resource. Start and end
// are times of day stored on the reference date 1970-01-01 UTC; an end of
// 24:00 is stored as midnight of the following day.
type AvailabilityRule struct {
	ID          string         `json:"id,omitempty" bson:"_id,omitempty"`
	ResourceID  string         `json:"resource_id" bson:"resource_id"`
	DayOfWeek   config.Weekday `json:"day_of_week" bson:"day_of_week"`
	StartTime   time.Time      `json:"-" bson:"start_time"`
	EndTime     time.Time      `json:"-" bson:"end_time"`
	IsAvailable bool           `json:"is_available" bson:"is_available"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

func (r *AvailabilityRule) AuditKey() string {
	return r.ID
}

func (r AvailabilityRule) MarshalJSON() ([]byte, error) {
	type alias AvailabilityRule
	return json.Marshal(struct {
		alias
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}{
		alias:     alias(r),
		StartTime: FormatTimeOfDay(r.StartTime),
		EndTime:   FormatTimeOfDay(r.EndTime),
	})
}

type AvailabilityRuleRequest struct {
	DayOfWeek   string `json:"day_of_week" validate:"required,weekday"`
	StartTime   string `json:"start_time" validate:"required,time_of_day"`
	EndTime     string `json:"end_time" validate:"required,time_of_day"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}

func IsTimeOfDay(s string) bool {
	return timeOfDayRegex.MatchString(s)
}

// ParseTimeOfDay converts "HH:MM" (or "24:00") into the reference-date
// representation used for storage.
func ParseTimeOfDay(s string) (time.Time, error) {
	if !IsTimeOfDay(s) {
		return time.Time{}, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	return TimeOfDay(hour, minute), nil
}

func TimeOfDay(hour, minute int) time.Time {
	return time.Date(1970, time.January, 1, hour, minute, 0, 0, time.UTC)
}

func FormatTimeOfDay(t time.Time) string {
	if t.Day() == 2 && t.Hour() == 0 && t.Minute() == 0 {
		return "24:00"
	}
	return t.UTC().Format(TimeOfDayLayout)
}

// ProjectTimeOfDay maps the wall clock of t onto the reference date,
// keeping sub-second precision.
func ProjectTimeOfDay(t time.Time) time.Time {
	return TimeOfDay(t.Hour(), t.Minute()).
		Add(time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond()))
}
