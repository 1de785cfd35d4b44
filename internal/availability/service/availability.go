package service

import (
	"bookit/internal/audit"
	availabilityerrors "bookit/internal/availability/errors"
	"bookit/internal/availability/repository"
	"bookit/internal/availability/validator"
	"bookit/internal/authz"
	"bookit/internal/conflict"
	resourcerepo "bookit/internal/resources/repository"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"bookit/pkg/sanitizer"
	"bookit/pkg/validation"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type AvailabilityService interface {
	AddRule(ctx context.Context, actor model.Actor, resourceID string, req *model.AvailabilityRuleRequest) (*model.AvailabilityRule, error)
	DeleteRule(ctx context.Context, actor model.Actor, resourceID, ruleID string) error
	ListRules(ctx context.Context, actor model.Actor, resourceID string) ([]*model.AvailabilityRule, error)
	Permits(ctx context.Context, resourceID string, start, end time.Time) (bool, error)
}

type availabilityService struct {
	repo       repository.AvailabilityRepository
	locks      mongotx.LockRepository
	resources  resourcerepo.ResourceLookup
	recorder   *audit.Recorder
	authorizer *authz.Authorizer
	validator  *validator.AvailabilityValidator
	cfg        *config.Config
}

func NewAvailabilityService(
	repo repository.AvailabilityRepository,
	locks mongotx.LockRepository,
	resources resourcerepo.ResourceLookup,
	recorder *audit.Recorder,
	authorizer *authz.Authorizer,
	validator *validator.AvailabilityValidator,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:       repo,
		locks:      locks,
		resources:  resources,
		recorder:   recorder,
		authorizer: authorizer,
		validator:  validator,
		cfg:        cfg,
	}
}

func (s *availabilityService) AddRule(ctx context.Context, actor model.Actor, resourceID string, req *model.AvailabilityRuleRequest) (*model.AvailabilityRule, error) {
	if err := s.authorizer.RequireRole(actor, authz.AddAvailability); err != nil {
		return nil, err
	}

	resourceID = sanitizer.SanitizeID(resourceID)
	req.DayOfWeek = strings.ToUpper(sanitizer.SanitizeID(req.DayOfWeek))
	req.StartTime = sanitizer.SanitizeID(req.StartTime)
	req.EndTime = sanitizer.SanitizeID(req.EndTime)

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Availability rule validation failed", "resource_id", resourceID, "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Availability rule validation failed", verrs.Details())
		}
		return nil, apperrors.Validation("Availability rule validation failed", map[string]any{"error": err.Error()})
	}

	resource, err := s.authorizeResource(ctx, actor, authz.AddAvailability, resourceID)
	if err != nil {
		return nil, err
	}

	// Validate has already accepted both values.
	start, _ := model.ParseTimeOfDay(req.StartTime)
	end, _ := model.ParseTimeOfDay(req.EndTime)

	rule := &model.AvailabilityRule{
		ResourceID:  resource.ID,
		DayOfWeek:   config.Weekday(req.DayOfWeek),
		StartTime:   start,
		EndTime:     end,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}

	txCtx, batch := s.recorder.Defer(ctx)
	err = s.repo.ExecuteTransaction(txCtx, func(sessCtx mongo.SessionContext) error {
		batch.Reset()
		rule.ID = ""

		if err := s.locks.Touch(sessCtx, mongotx.AvailabilityLockKey(rule.ResourceID, rule.DayOfWeek)); err != nil {
			return apperrors.Internal("Failed to lock resource availability", err)
		}

		existing, err := s.repo.FindByResourceAndDay(sessCtx, rule.ResourceID, rule.DayOfWeek)
		if err != nil {
			return apperrors.Internal("Failed to read availability rules", err)
		}
		for _, other := range existing {
			if conflict.Overlaps(rule.StartTime, rule.EndTime, other.StartTime, other.EndTime) {
				return apperrors.Conflict("Availability window overlaps an existing rule").
					WithDetails(map[string]any{
						"rule_id":     other.ID,
						"day_of_week": string(other.DayOfWeek),
						"start_time":  model.FormatTimeOfDay(other.StartTime),
						"end_time":    model.FormatTimeOfDay(other.EndTime),
					})
			}
		}

		if err := s.repo.Create(sessCtx, rule); err != nil {
			return apperrors.Internal("Failed to create availability rule", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Warn("Availability rule rejected", "resource_id", rule.ResourceID, "day_of_week", rule.DayOfWeek, "error", err)
			return nil, err
		}
		s.cfg.Log.Error("Failed to add availability rule", "resource_id", rule.ResourceID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, apperrors.AsAppError(err)
		}
		return nil, apperrors.Internal("Failed to add availability rule", err)
	}
	batch.Flush(ctx)

	s.cfg.Log.Info("Availability rule added",
		"id", rule.ID,
		"resource_id", rule.ResourceID,
		"day_of_week", rule.DayOfWeek,
		"start_time", model.FormatTimeOfDay(rule.StartTime),
		"end_time", model.FormatTimeOfDay(rule.EndTime),
		"is_available", rule.IsAvailable,
	)
	return rule, nil
}

func (s *availabilityService) DeleteRule(ctx context.Context, actor model.Actor, resourceID, ruleID string) error {
	if err := s.authorizer.RequireRole(actor, authz.DeleteAvailability); err != nil {
		return err
	}

	resourceID = sanitizer.SanitizeID(resourceID)
	ruleID = sanitizer.SanitizeID(ruleID)
	if ruleID == "" {
		return apperrors.InvalidInput("Availability rule ID cannot be empty")
	}

	if _, err := s.authorizeResource(ctx, actor, authz.DeleteAvailability, resourceID); err != nil {
		return err
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		return s.ruleError(err, ruleID, "Failed to retrieve availability rule")
	}
	if rule.ResourceID != resourceID {
		return apperrors.NotFoundWithID("AvailabilityRule", ruleID)
	}

	if err := s.repo.Delete(ctx, ruleID); err != nil {
		return s.ruleError(err, ruleID, "Failed to delete availability rule")
	}

	s.cfg.Log.Info("Availability rule deleted", "id", ruleID, "resource_id", resourceID)
	return nil
}

func (s *availabilityService) ListRules(ctx context.Context, actor model.Actor, resourceID string) ([]*model.AvailabilityRule, error) {
	if err := s.authorizer.RequireRole(actor, authz.ListAvailability); err != nil {
		return nil, err
	}

	resourceID = sanitizer.SanitizeID(resourceID)
	if _, err := s.authorizeResource(ctx, actor, authz.ListAvailability, resourceID); err != nil {
		return nil, err
	}

	rules, err := s.repo.FindByResource(ctx, resourceID)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability rules", "resource_id", resourceID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability rules", err)
	}

	sortRules(rules)
	if rules == nil {
		rules = []*model.AvailabilityRule{}
	}
	return rules, nil
}

// Permits decides whether [start, end) fits the weekly rules of a resource,
// evaluated in the configured time zone. A resource without rules is
// unrestricted. Otherwise the window must sit inside the available time of
// its start day, where touching available rules form one continuous span.
// Windows that cross midnight are only admitted when they end exactly at it.
func (s *availabilityService) Permits(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	rules, err := s.repo.FindByResource(ctx, resourceID)
	if err != nil {
		return false, fmt.Errorf("load availability rules of %s: %w", resourceID, err)
	}
	if len(rules) == 0 {
		return true, nil
	}

	day, from, to, ok := projectWindow(start, end, s.cfg.Location())
	if !ok {
		return false, nil
	}

	// AddRule never stores an unavailable rule overlapping another rule, but
	// rules written by other tools may, and those still block.
	for _, rule := range rules {
		if rule.DayOfWeek == day && !rule.IsAvailable && conflict.Overlaps(from, to, rule.StartTime, rule.EndTime) {
			return false, nil
		}
	}

	for _, sp := range availableSpans(rules, day) {
		if !from.Before(sp.start) && !to.After(sp.end) {
			return true, nil
		}
	}
	return false, nil
}

type span struct {
	start, end time.Time
}

// availableSpans merges the available rules of day into disjoint spans.
func availableSpans(rules []*model.AvailabilityRule, day config.Weekday) []span {
	var spans []span
	for _, rule := range rules {
		if rule.DayOfWeek == day && rule.IsAvailable {
			spans = append(spans, span{start: rule.StartTime, end: rule.EndTime})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	merged := make([]span, 0, len(spans))
	for _, sp := range spans {
		last := len(merged) - 1
		if last >= 0 && !sp.start.After(merged[last].end) {
			if sp.end.After(merged[last].end) {
				merged[last].end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// projectWindow maps a booking window onto the reference date used by rules.
func projectWindow(start, end time.Time, loc *time.Location) (config.Weekday, time.Time, time.Time, bool) {
	localStart := start.In(loc)
	localEnd := end.In(loc)

	day := config.WeekdayOf(int(localStart.Weekday()))
	from := model.ProjectTimeOfDay(localStart)

	sy, sm, sd := localStart.Date()
	ey, em, ed := localEnd.Date()
	if sy == ey && sm == em && sd == ed {
		return day, from, model.ProjectTimeOfDay(localEnd), true
	}

	midnight := time.Date(sy, sm, sd+1, 0, 0, 0, 0, loc)
	if localEnd.Equal(midnight) {
		return day, from, model.TimeOfDay(24, 0), true
	}
	return "", time.Time{}, time.Time{}, false
}

func (s *availabilityService) authorizeResource(ctx context.Context, actor model.Actor, op authz.Operation, resourceID string) (*model.Resource, error) {
	if resourceID == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.resources.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, resourcerepo.ErrNotFound) || errors.Is(err, resourcerepo.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Resource", resourceID)
		}
		s.cfg.Log.Error("Failed to look up resource", "resource_id", resourceID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}

	if err := s.authorizer.CheckOwnership(actor, op, authz.ResourceSubject(resource)); err != nil {
		return nil, err
	}
	return resource, nil
}

func (s *availabilityService) ruleError(err error, ruleID, message string) error {
	if errors.Is(err, availabilityerrors.ErrNotFound) || errors.Is(err, availabilityerrors.ErrInvalidID) {
		return apperrors.NotFoundWithID("AvailabilityRule", ruleID)
	}
	s.cfg.Log.Error(message, "id", ruleID, "error", err)
	return apperrors.Internal(message, err)
}

func sortRules(rules []*model.AvailabilityRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].DayOfWeek != rules[j].DayOfWeek {
			return rules[i].DayOfWeek.Order() < rules[j].DayOfWeek.Order()
		}
		return rules[i].StartTime.Before(rules[j].StartTime)
	})
}
