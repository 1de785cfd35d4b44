// Package audit records an append-only trail of entity mutations.
//
// Repositories are wrapped by typed decorators that call RecordMutation after
// each successful write. Writes that fail are logged and dropped: the trail
// is best-effort and never fails the mutation it describes.
package audit

import (
	"bookit/pkg/logger"
	"bookit/pkg/middleware"
	"bookit/pkg/model"
	"context"
	"sync"
	"time"
)

const defaultWriteTimeout = 5 * time.Second

// Snapshot is a record whose state can be attached to an audit entry.
type Snapshot interface {
	AuditKey() string
}

// Auditable receives the mutations of a single entity type. Pass a literal
// nil for an absent snapshot, never a typed nil pointer.
type Auditable interface {
	RecordMutation(ctx context.Context, action model.AuditAction, oldState, newState Snapshot)
}

// Writer persists audit entries.
type Writer interface {
	Insert(ctx context.Context, entry *model.AuditLogEntry) error
}

type Recorder struct {
	writer       Writer
	log          *logger.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

func NewRecorder(writer Writer, log *logger.Logger) *Recorder {
	return &Recorder{
		writer:       writer,
		log:          log,
		writeTimeout: defaultWriteTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// For returns the tracker decorators of entity should report to.
func (r *Recorder) For(entity model.Entity) Auditable {
	return &tracker{recorder: r, entity: entity}
}

type tracker struct {
	recorder *Recorder
	entity   model.Entity
}

func (t *tracker) RecordMutation(ctx context.Context, action model.AuditAction, oldState, newState Snapshot) {
	t.recorder.record(ctx, t.entity, action, oldState, newState)
}

func (r *Recorder) record(ctx context.Context, entity model.Entity, action model.AuditAction, oldState, newState Snapshot) {
	if !model.IsTracked(entity) {
		return
	}

	entry := &model.AuditLogEntry{
		Action:    action,
		Entity:    entity,
		CreatedAt: r.now(),
	}
	if actor, ok := middleware.ActorFromContext(ctx); ok {
		entry.UserID = actor.UserID
	}
	if oldState != nil {
		entry.OldData = oldState
		entry.EntityID = oldState.AuditKey()
	}
	if newState != nil {
		entry.NewData = newState
		if key := newState.AuditKey(); key != "" {
			entry.EntityID = key
		}
	}

	if batch := batchFromContext(ctx); batch != nil {
		batch.add(entry)
		return
	}

	r.write(ctx, entry)
}

// write stores entry outside of any caller transaction. Failures are logged
// and swallowed.
func (r *Recorder) write(ctx context.Context, entry *model.AuditLogEntry) {
	writeCtx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.writer.Insert(writeCtx, entry); err != nil {
		r.log.FromContext(ctx).Error("Failed to write audit log entry",
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}

type batchKey struct{}

// Batch holds the entries produced inside a transaction until it commits.
type Batch struct {
	mu       sync.Mutex
	entries  []*model.AuditLogEntry
	recorder *Recorder
}

// Defer makes every mutation recorded through ctx wait in the returned batch.
// Call Reset at the start of each transaction attempt and Flush once the
// transaction has committed.
func (r *Recorder) Defer(ctx context.Context) (context.Context, *Batch) {
	batch := &Batch{recorder: r}
	return context.WithValue(ctx, batchKey{}, batch), batch
}

func batchFromContext(ctx context.Context) *Batch {
	batch, _ := ctx.Value(batchKey{}).(*Batch)
	return batch
}

func (b *Batch) add(entry *model.AuditLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Reset drops the entries of an aborted attempt.
func (b *Batch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Flush writes the buffered entries and empties the batch.
func (b *Batch) Flush(ctx context.Context) {
	b.mu.Lock()
	entries := b.entries
	b.entries = nil
	b.mu.Unlock()

	for _, entry := range entries {
		b.recorder.write(ctx, entry)
	}
}
