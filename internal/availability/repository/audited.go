package repository

import (
	"bookit/internal/audit"
	"bookit/pkg/model"
	"context"
)

type auditedAvailabilityRepository struct {
	AvailabilityRepository
	tracker audit.Auditable
}

func NewAuditedAvailabilityRepository(inner AvailabilityRepository, tracker audit.Auditable) AvailabilityRepository {
	return &auditedAvailabilityRepository{AvailabilityRepository: inner, tracker: tracker}
}

func (r *auditedAvailabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := r.AvailabilityRepository.Create(ctx, rule); err != nil {
		return err
	}
	r.tracker.RecordMutation(ctx, model.AuditCreate, nil, rule)
	return nil
}

// Delete snapshots the rule before removing it. A rule that cannot be read
// is still deleted and recorded without old data.
func (r *auditedAvailabilityRepository) Delete(ctx context.Context, id string) error {
	old, findErr := r.AvailabilityRepository.FindByID(ctx, id)

	if err := r.AvailabilityRepository.Delete(ctx, id); err != nil {
		return err
	}

	if findErr != nil {
		r.tracker.RecordMutation(ctx, model.AuditDelete, deletedRule(id), nil)
		return nil
	}
	r.tracker.RecordMutation(ctx, model.AuditDelete, old, nil)
	return nil
}

func deletedRule(id string) *model.AvailabilityRule {
	return &model.AvailabilityRule{ID: id}
}
