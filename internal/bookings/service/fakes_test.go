package service

import (
	"bookit/internal/audit"
	"bookit/internal/authz"
	bookingserrors "bookit/internal/bookings/errors"
	"bookit/internal/bookings/repository"
	"bookit/internal/bookings/validator"
	"bookit/internal/conflict"
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

// ────────────────────────────────────────────────
// In-memory collaborators
// ────────────────────────────────────────────────

type memBookingRepository struct {
	mu        sync.Mutex
	bookings  map[string]*model.Booking
	seq       int
	findCalls int
	txCalls   int
}

func newMemBookingRepository() *memBookingRepository {
	return &memBookingRepository{bookings: map[string]*model.Booking{}}
}

func (m *memBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	booking.ID = fmt.Sprintf("%024x", m.seq)
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt

	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findCalls++
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	found := *b
	return &found, nil
}

func (m *memBookingRepository) ExistsOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string, statuses []config.BookingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ResourceID != resourceID || b.ID == excludeID {
			continue
		}
		if !hasStatus(statuses, b.Status) {
			continue
		}
		if conflict.Overlaps(b.StartTime, b.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookingRepository) UpdateStatus(ctx context.Context, change *model.BookingStatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[change.BookingID]
	if !ok || b.Status != change.From {
		return bookingserrors.ErrStatusChanged
	}
	b.Status = change.To
	b.UpdatedAt = change.UpdatedAt
	return nil
}

func (m *memBookingRepository) FindByFilter(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, error) {
	matched := m.match(filter)
	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memBookingRepository) CountByFilter(ctx context.Context, filter repository.Filter) (int64, error) {
	return int64(len(m.match(filter))), nil
}

func (m *memBookingRepository) match(f repository.Filter) []*model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Booking
	for _, b := range m.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.OrganizationID != "" && b.OrganizationID != f.OrganizationID {
			continue
		}
		if f.ResourceID != "" && b.ResourceID != f.ResourceID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
			continue
		}
		if f.To != nil && !b.StartTime.Before(*f.To) {
			continue
		}
		if f.From != nil && !b.EndTime.After(*f.From) {
			continue
		}
		found := *b
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// ExecuteTransaction runs fn once on a session-less SessionContext, the way
// the driver invokes it on a committed first attempt.
func (m *memBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.mu.Lock()
	m.txCalls++
	m.mu.Unlock()
	return fn(mongo.NewSessionContext(ctx, nil))
}

func (m *memBookingRepository) status(id string) config.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func hasStatus(statuses []config.BookingStatus, s config.BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

type memApprovalRepository struct {
	mu        sync.Mutex
	approvals map[string]*model.BookingApproval
	seq       int
}

func newMemApprovalRepository() *memApprovalRepository {
	return &memApprovalRepository{approvals: map[string]*model.BookingApproval{}}
}

func (m *memApprovalRepository) Upsert(ctx context.Context, approval *model.BookingApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.approvals[approval.BookingID]; ok {
		approval.ID = existing.ID
	} else {
		m.seq++
		approval.ID = fmt.Sprintf("approval-%d", m.seq)
	}
	stored := *approval
	m.approvals[approval.BookingID] = &stored
	return nil
}

func (m *memApprovalRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.BookingApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.approvals[bookingID]
	if !ok {
		return nil, bookingserrors.ErrApprovalNotFound
	}
	found := *a
	return &found, nil
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
	calls     int
}

func (m *memResourceLookup) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	m.calls++
	r, ok := m.resources[id]
	if !ok {
		return nil, resourcerepo.ErrNotFound
	}
	found := *r
	return &found, nil
}

type stubAvailability struct {
	permits bool
	err     error
	calls   int
}

func (s *stubAvailability) Permits(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	s.calls++
	return s.permits, s.err
}

type sentNotification struct {
	UserID  string
	Title   string
	Message string
	Type    config.NotificationType
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) SendNotification(ctx context.Context, userID, title, message string, typ config.NotificationType) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Message: message, Type: typ})
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

func (w *memAuditWriter) actions() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, string(e.Entity)+":"+string(e.Action))
	}
	return out
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

const (
	resourceRequiresApproval = "650000000000000000000001"
	resourceSelfService      = "650000000000000000000002"
	resourceOtherOrg         = "650000000000000000000003"
	resourceInactive         = "650000000000000000000004"
	resourceSmallRoom        = "650000000000000000000005"
)

var (
	member      = model.Actor{UserID: "user-1", OrganizationID: "org-1", Role: config.RoleUser}
	otherMember = model.Actor{UserID: "user-2", OrganizationID: "org-1", Role: config.RoleUser}
	orgAdmin    = model.Actor{UserID: "admin-1", OrganizationID: "org-1", Role: config.RoleOrgAdmin}
	foreignAdm  = model.Actor{UserID: "admin-2", OrganizationID: "org-2", Role: config.RoleOrgAdmin}
	superAdmin  = model.Actor{UserID: "root", Role: config.RoleSuperAdmin}
)

type harness struct {
	service      BookingService
	bookings     *memBookingRepository
	approvals    *memApprovalRepository
	locks        *memLockRepository
	resources    *memResourceLookup
	availability *stubAvailability
	notifier     *recordingNotifier
	audit        *memAuditWriter
	cfg          *config.Config
}

func newHarness(t *testing.T, tweak ...func(*config.Config)) *harness {
	t.Helper()

	log := logger.Discard()
	cfg := &config.Config{
		Log:                    log,
		ReadTimeout:            5 * time.Second,
		WriteTimeout:           5 * time.Second,
		DefaultBookingPriority: 0,
		MinBookingPriority:     0,
		MaxBookingPriority:     10,
		MinRejectReasonLength:  5,
		EnforceAvailability:    true,
		AvailabilityTimeZone:   "UTC",
		CreateBlocksPending:    true,
	}
	for _, fn := range tweak {
		fn(cfg)
	}

	h := &harness{
		bookings:  newMemBookingRepository(),
		approvals: newMemApprovalRepository(),
		locks:     &memLockRepository{},
		resources: &memResourceLookup{resources: map[string]*model.Resource{
			resourceRequiresApproval: {ID: resourceRequiresApproval, OrganizationID: "org-1", Name: "Board room", RequiresApproval: true, IsActive: true},
			resourceSelfService:      {ID: resourceSelfService, OrganizationID: "org-1", Name: "Phone booth", IsActive: true},
			resourceOtherOrg:         {ID: resourceOtherOrg, OrganizationID: "org-2", Name: "Lab", IsActive: true},
			resourceInactive:         {ID: resourceInactive, OrganizationID: "org-1", Name: "Closed wing"},
			resourceSmallRoom:        {ID: resourceSmallRoom, OrganizationID: "org-1", Name: "Huddle", Capacity: 4, IsActive: true},
		}},
		availability: &stubAvailability{permits: true},
		notifier:     &recordingNotifier{},
		audit:        &memAuditWriter{},
		cfg:          cfg,
	}

	recorder := audit.NewRecorder(h.audit, log)
	h.service = NewBookingService(
		repository.NewAuditedBookingRepository(h.bookings, recorder.For(model.EntityBooking)),
		repository.NewAuditedApprovalRepository(h.approvals, recorder.For(model.EntityBookingApproval)),
		h.locks,
		h.resources,
		conflict.NewDetector(h.bookings),
		h.availability,
		h.notifier,
		recorder,
		authz.NewAuthorizer(nil),
		validator.NewBookingValidator(log, cfg.MinBookingPriority, cfg.MaxBookingPriority),
		cfg,
	)
	return h
}

var day = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func request(resourceID string, start, end time.Time) *model.BookingRequest {
	return &model.BookingRequest{
		ResourceID: resourceID,
		Title:      "Weekly sync",
		StartTime:  start,
		EndTime:    end,
	}
}

func intPtr(v int) *int { return &v }
