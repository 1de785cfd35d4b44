package validator

import (
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"bookit/pkg/validation"
	"errors"
	"testing"
)

func TestAvailabilityValidator_Validate(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())

	tests := []struct {
		name      string
		req       *model.AvailabilityRuleRequest
		wantField string
	}{
		{"valid", &model.AvailabilityRuleRequest{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "17:00"}, ""},
		{"lower-case day", &model.AvailabilityRuleRequest{DayOfWeek: "friday", StartTime: "09:00", EndTime: "17:00"}, ""},
		{"until midnight", &model.AvailabilityRuleRequest{DayOfWeek: "SUNDAY", StartTime: "18:00", EndTime: "24:00"}, ""},
		{"unknown day", &model.AvailabilityRuleRequest{DayOfWeek: "FUNDAY", StartTime: "09:00", EndTime: "17:00"}, "day_of_week"},
		{"missing day", &model.AvailabilityRuleRequest{StartTime: "09:00", EndTime: "17:00"}, "day_of_week"},
		{"bad start", &model.AvailabilityRuleRequest{DayOfWeek: "MONDAY", StartTime: "9am", EndTime: "17:00"}, "start_time"},
		{"start equals end", &model.AvailabilityRuleRequest{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "09:00"}, "end_time"},
		{"end before start", &model.AvailabilityRuleRequest{DayOfWeek: "MONDAY", StartTime: "17:00", EndTime: "09:00"}, "end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected error on %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}
