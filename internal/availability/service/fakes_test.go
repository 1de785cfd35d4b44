package service

import (
	"bookit/internal/audit"
	"bookit/internal/authz"
	availabilityerrors "bookit/internal/availability/errors"
	"bookit/internal/availability/repository"
	"bookit/internal/availability/validator"
	resourcerepo "bookit/internal/resources/repository"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type memAvailabilityRepository struct {
	mu    sync.Mutex
	rules map[string]*model.AvailabilityRule
	seq   int
	err   error
}

func newMemAvailabilityRepository() *memAvailabilityRepository {
	return &memAvailabilityRepository{rules: map[string]*model.AvailabilityRule{}}
}

func (m *memAvailabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rule.ID = fmt.Sprintf("%024x", m.seq)
	rule.CreatedAt = time.Now().UTC()
	stored := *rule
	m.rules[rule.ID] = &stored
	return nil
}

func (m *memAvailabilityRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, availabilityerrors.ErrNotFound
	}
	found := *r
	return &found, nil
}

func (m *memAvailabilityRepository) FindByResource(ctx context.Context, resourceID string) ([]*model.AvailabilityRule, error) {
	return m.find(func(r *model.AvailabilityRule) bool { return r.ResourceID == resourceID })
}

func (m *memAvailabilityRepository) FindByResourceAndDay(ctx context.Context, resourceID string, day config.Weekday) ([]*model.AvailabilityRule, error) {
	return m.find(func(r *model.AvailabilityRule) bool { return r.ResourceID == resourceID && r.DayOfWeek == day })
}

func (m *memAvailabilityRepository) find(match func(*model.AvailabilityRule) bool) ([]*model.AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	var out []*model.AvailabilityRule
	for _, r := range m.rules {
		if match(r) {
			found := *r
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memAvailabilityRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return availabilityerrors.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *memAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

// seed stores a rule directly, bypassing overlap checks.
func (m *memAvailabilityRepository) seed(resourceID string, day config.Weekday, start, end string, available bool) *model.AvailabilityRule {
	s, _ := model.ParseTimeOfDay(start)
	e, _ := model.ParseTimeOfDay(end)
	rule := &model.AvailabilityRule{ResourceID: resourceID, DayOfWeek: day, StartTime: s, EndTime: e, IsAvailable: available}
	_ = m.Create(context.Background(), rule)
	return rule
}

type memLockRepository struct {
	mu      sync.Mutex
	touched []string
}

func (m *memLockRepository) Touch(ctx context.Context, key string) error {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		return fmt.Errorf("lock %s touched outside a transaction", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, key)
	return nil
}

type memResourceLookup struct {
	resources map[string]*model.Resource
}

func (m *memResourceLookup) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	r, ok := m.resources[id]
	if !ok {
		return nil, resourcerepo.ErrNotFound
	}
	found := *r
	return &found, nil
}

type memAuditWriter struct {
	mu      sync.Mutex
	entries []*model.AuditLogEntry
}

func (w *memAuditWriter) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	return nil
}

func (w *memAuditWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

const (
	roomID      = "650000000000000000000001"
	foreignRoom = "650000000000000000000003"
)

var (
	member     = model.Actor{UserID: "user-1", OrganizationID: "org-1", Role: config.RoleUser}
	orgAdmin   = model.Actor{UserID: "admin-1", OrganizationID: "org-1", Role: config.RoleOrgAdmin}
	foreignAdm = model.Actor{UserID: "admin-2", OrganizationID: "org-2", Role: config.RoleOrgAdmin}
)

type harness struct {
	service AvailabilityService
	rules   *memAvailabilityRepository
	locks   *memLockRepository
	audit   *memAuditWriter
	cfg     *config.Config
}

func newHarness(t *testing.T, tweak ...func(*config.Config)) *harness {
	t.Helper()

	log := logger.Discard()
	cfg := &config.Config{
		Log:                  log,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		AvailabilityTimeZone: "UTC",
	}
	for _, fn := range tweak {
		fn(cfg)
	}

	h := &harness{
		rules: newMemAvailabilityRepository(),
		locks: &memLockRepository{},
		audit: &memAuditWriter{},
		cfg:   cfg,
	}
	resources := &memResourceLookup{resources: map[string]*model.Resource{
		roomID:      {ID: roomID, OrganizationID: "org-1", Name: "Board room", IsActive: true},
		foreignRoom: {ID: foreignRoom, OrganizationID: "org-2", Name: "Lab", IsActive: true},
	}}

	recorder := audit.NewRecorder(h.audit, log)
	h.service = NewAvailabilityService(
		repository.NewAuditedAvailabilityRepository(h.rules, recorder.For(model.EntityAvailabilityRule)),
		h.locks,
		resources,
		recorder,
		authz.NewAuthorizer(nil),
		validator.NewAvailabilityValidator(log),
		cfg,
	)
	return h
}

func rule(day, start, end string) *model.AvailabilityRuleRequest {
	return &model.AvailabilityRuleRequest{DayOfWeek: day, StartTime: start, EndTime: end}
}

func boolPtr(v bool) *bool { return &v }

// 2026-03-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}
