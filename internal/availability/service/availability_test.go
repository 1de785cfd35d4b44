package service

import (
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestAddRule_OverlapOnSameDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.service.AddRule(ctx, orgAdmin, roomID, rule("MONDAY", "09:00", "17:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == "" || !first.IsAvailable || first.DayOfWeek != config.Monday {
		t.Errorf("unexpected rule: %+v", first)
	}

	_, err = h.service.AddRule(ctx, orgAdmin, roomID, rule("MONDAY", "16:00", "18:00"))
	assertCode(t, err, apperrors.CodeConflict)

	if _, err := h.service.AddRule(ctx, orgAdmin, roomID, rule("MONDAY", "17:00", "18:00")); err != nil {
		t.Errorf("touching window must be accepted: %v", err)
	}
	if _, err := h.service.AddRule(ctx, orgAdmin, roomID, rule("TUESDAY", "16:00", "18:00")); err != nil {
		t.Errorf("other day must be independent: %v", err)
	}

	if got := h.audit.count(); got != 3 {
		t.Errorf("expected 3 audit entries, got %d", got)
	}
	want := mongotx.AvailabilityLockKey(roomID, config.Monday)
	if len(h.locks.touched) == 0 || h.locks.touched[0] != want {
		t.Errorf("expected lock %s, got %v", want, h.locks.touched)
	}
}

func TestAddRule_UnavailableWindowsAlsoConflict(t *testing.T) {
	h := newHarness(t)
	req := rule("MONDAY", "12:00", "13:00")
	req.IsAvailable = boolPtr(false)

	created, err := h.service.AddRule(context.Background(), orgAdmin, roomID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.IsAvailable {
		t.Error("expected is_available=false to be kept")
	}

	_, err = h.service.AddRule(context.Background(), orgAdmin, roomID, rule("MONDAY", "09:00", "17:00"))
	assertCode(t, err, apperrors.CodeConflict)
}

func TestAddRule_Validation(t *testing.T) {
	tests := []struct {
		name  string
		actor model.Actor
		res   string
		req   *model.AvailabilityRuleRequest
		code  string
	}{
		{"end before start", orgAdmin, roomID, rule("MONDAY", "17:00", "09:00"), apperrors.CodeValidation},
		{"empty window", orgAdmin, roomID, rule("MONDAY", "09:00", "09:00"), apperrors.CodeValidation},
		{"bad day", orgAdmin, roomID, rule("FUNDAY", "09:00", "10:00"), apperrors.CodeValidation},
		{"bad time", orgAdmin, roomID, rule("MONDAY", "9am", "10:00"), apperrors.CodeValidation},
		{"plain user", member, roomID, rule("MONDAY", "09:00", "10:00"), apperrors.CodeForbidden},
		{"other organization", foreignAdm, roomID, rule("MONDAY", "09:00", "10:00"), apperrors.CodeForbidden},
		{"unknown resource", orgAdmin, "650000000000000000000099", rule("MONDAY", "09:00", "10:00"), apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.service.AddRule(context.Background(), tt.actor, tt.res, tt.req)
			assertCode(t, err, tt.code)
			if len(h.rules.rules) != 0 {
				t.Error("rejected rule must not be stored")
			}
		})
	}
}

func TestAddRule_NormalizesDayAndAcceptsEndOfDay(t *testing.T) {
	h := newHarness(t)

	created, err := h.service.AddRule(context.Background(), orgAdmin, roomID, rule(" friday ", "20:00", "24:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.DayOfWeek != config.Friday {
		t.Errorf("expected FRIDAY, got %s", created.DayOfWeek)
	}
	if got := model.FormatTimeOfDay(created.EndTime); got != "24:00" {
		t.Errorf("expected end 24:00, got %s", got)
	}
}

func TestDeleteRule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := h.rules.seed(roomID, config.Monday, "09:00", "17:00", true)
	foreign := h.rules.seed(foreignRoom, config.Monday, "09:00", "17:00", true)

	assertCode(t, h.service.DeleteRule(ctx, member, roomID, existing.ID), apperrors.CodeForbidden)
	assertCode(t, h.service.DeleteRule(ctx, foreignAdm, roomID, existing.ID), apperrors.CodeForbidden)
	assertCode(t, h.service.DeleteRule(ctx, orgAdmin, roomID, "650000000000000000000077"), apperrors.CodeNotFound)
	// A rule of another resource is invisible under this path.
	assertCode(t, h.service.DeleteRule(ctx, orgAdmin, roomID, foreign.ID), apperrors.CodeNotFound)

	if err := h.service.DeleteRule(ctx, orgAdmin, roomID, existing.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := h.rules.rules[existing.ID]; ok {
		t.Error("rule should be gone")
	}
	if len(h.audit.entries) != 1 || h.audit.entries[0].Action != model.AuditDelete || h.audit.entries[0].EntityID != existing.ID {
		t.Errorf("unexpected audit entries: %+v", h.audit.entries)
	}
	if h.audit.entries[0].OldData == nil || h.audit.entries[0].NewData != nil {
		t.Error("delete must record old data only")
	}

	assertCode(t, h.service.DeleteRule(ctx, orgAdmin, roomID, existing.ID), apperrors.CodeNotFound)
}

func TestListRules_OrderedByWeekThenStart(t *testing.T) {
	h := newHarness(t)
	h.rules.seed(roomID, config.Sunday, "10:00", "12:00", true)
	h.rules.seed(roomID, config.Tuesday, "13:00", "14:00", true)
	h.rules.seed(roomID, config.Monday, "14:00", "15:00", false)
	h.rules.seed(roomID, config.Monday, "09:00", "12:00", true)
	h.rules.seed(foreignRoom, config.Monday, "09:00", "12:00", true)

	rules, err := h.service.ListRules(context.Background(), member, roomID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"MONDAY 09:00", "MONDAY 14:00", "TUESDAY 13:00", "SUNDAY 10:00"}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, r := range rules {
		if got := string(r.DayOfWeek) + " " + model.FormatTimeOfDay(r.StartTime); got != want[i] {
			t.Errorf("rules[%d] = %s, want %s", i, got, want[i])
		}
	}

	_, err = h.service.ListRules(context.Background(), member, foreignRoom)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestListRules_EmptyIsNotNil(t *testing.T) {
	h := newHarness(t)
	rules, err := h.service.ListRules(context.Background(), member, roomID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules == nil || len(rules) != 0 {
		t.Errorf("expected empty slice, got %v", rules)
	}
}

func TestPermits(t *testing.T) {
	tuesday := func(hour, minute int) time.Time { return monday(hour, minute).AddDate(0, 0, 1) }

	tests := []struct {
		name       string
		seed       func(*memAvailabilityRepository)
		start, end time.Time
		want       bool
	}{
		{"no rules is unrestricted", nil, monday(3, 0), monday(4, 0), true},
		{
			"inside window",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "09:00", "17:00", true) },
			monday(10, 0), monday(11, 0), true,
		},
		{
			"exactly the window",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "09:00", "17:00", true) },
			monday(9, 0), monday(17, 0), true,
		},
		{
			"runs past window",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "09:00", "17:00", true) },
			monday(16, 0), monday(18, 0), false,
		},
		{
			"day without rules",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "09:00", "17:00", true) },
			tuesday(10, 0), tuesday(11, 0), false,
		},
		{
			"touching rules form one span",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "17:00", "18:00", true)
				m.seed(roomID, config.Monday, "09:00", "17:00", true)
			},
			monday(16, 30), monday(17, 30), true,
		},
		{
			"chain of touching rules",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "09:00", "10:00", true)
				m.seed(roomID, config.Monday, "10:00", "11:00", true)
				m.seed(roomID, config.Monday, "11:00", "12:00", true)
			},
			monday(9, 0), monday(12, 0), true,
		},
		{
			"gap between rules",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "09:00", "12:00", true)
				m.seed(roomID, config.Monday, "13:00", "17:00", true)
			},
			monday(11, 0), monday(14, 0), false,
		},
		{
			"ends a fraction past the window",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "09:00", "17:00", true) },
			monday(16, 0), monday(17, 0).Add(900 * time.Millisecond), false,
		},
		{
			"stored unavailable rule inside an available one",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "09:00", "12:00", true)
				m.seed(roomID, config.Monday, "12:00", "17:00", true)
				m.seed(roomID, config.Monday, "10:00", "11:00", false)
			},
			monday(10, 30), monday(11, 30), false,
		},
		{
			"touching stored unavailable rule",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "09:00", "12:00", true)
				m.seed(roomID, config.Monday, "10:00", "11:00", false)
			},
			monday(11, 0), monday(12, 0), true,
		},
		{
			"only unavailable rules",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "00:00", "06:00", false) },
			monday(10, 0), monday(11, 0), false,
		},
		{
			"ends at midnight",
			func(m *memAvailabilityRepository) { m.seed(roomID, config.Monday, "20:00", "24:00", true) },
			monday(22, 0), tuesday(0, 0), true,
		},
		{
			"crosses midnight",
			func(m *memAvailabilityRepository) {
				m.seed(roomID, config.Monday, "20:00", "24:00", true)
				m.seed(roomID, config.Tuesday, "00:00", "06:00", true)
			},
			monday(23, 0), tuesday(1, 0), false,
		},
		{
			"other resource rules ignored",
			func(m *memAvailabilityRepository) { m.seed(foreignRoom, config.Monday, "09:00", "10:00", true) },
			monday(12, 0), monday(13, 0), true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.seed != nil {
				tt.seed(h.rules)
			}
			got, err := h.service.Permits(context.Background(), roomID, tt.start, tt.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Permits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermits_AcrossRulesAddedTouching(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, req := range []*model.AvailabilityRuleRequest{rule("MONDAY", "09:00", "17:00"), rule("MONDAY", "17:00", "18:00")} {
		if _, err := h.service.AddRule(ctx, orgAdmin, roomID, req); err != nil {
			t.Fatalf("add rule: %v", err)
		}
	}

	ok, err := h.service.Permits(ctx, roomID, monday(16, 30), monday(17, 30))
	if err != nil || !ok {
		t.Errorf("expected a window spanning both rules to be permitted, got %v %v", ok, err)
	}
	if ok, _ := h.service.Permits(ctx, roomID, monday(17, 30), monday(18, 30)); ok {
		t.Error("expected a window past the last rule to be refused")
	}
}

func TestPermits_UsesConfiguredTimeZone(t *testing.T) {
	// 08:30 UTC is 09:30 in Berlin in March.
	start := monday(8, 30)
	end := monday(9, 30)

	utc := newHarness(t)
	utc.rules.seed(roomID, config.Monday, "09:00", "17:00", true)
	if ok, _ := utc.service.Permits(context.Background(), roomID, start, end); ok {
		t.Error("expected UTC evaluation to reject the window")
	}

	berlin := newHarness(t, func(cfg *config.Config) { cfg.AvailabilityTimeZone = "Europe/Berlin" })
	berlin.rules.seed(roomID, config.Monday, "09:00", "17:00", true)
	if ok, err := berlin.service.Permits(context.Background(), roomID, start, end); err != nil || !ok {
		t.Errorf("expected Berlin evaluation to accept the window, got %v %v", ok, err)
	}
}

func TestPermits_RepositoryError(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("connection reset")
	h.rules.err = boom

	ok, err := h.service.Permits(context.Background(), roomID, monday(9, 0), monday(10, 0))
	if ok || !errors.Is(err, boom) {
		t.Errorf("expected wrapped repository error, got %v %v", ok, err)
	}
}
