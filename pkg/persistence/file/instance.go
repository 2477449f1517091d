package file

import (
	"context"
	"sort"

	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
)

const instancesDir = "instances"

// InstanceRepository stores one JSON document per flow instance. The record
// file carries the full instance including its logs; Save preserves the
// stored logs so that AppendLogs stays the only way to grow them.
type InstanceRepository struct {
	persistence *Persistence
}

func (r *InstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.FlowInstance, error) {
	ids, err := r.persistence.listIDs(instancesDir)
	if err != nil {
		return nil, err
	}

	instances := make([]*models.FlowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if instance == nil {
			continue
		}

		if opts.ProjectID != "" && instance.ProjectID != opts.ProjectID {
			continue
		}

		if opts.Status != nil && instance.Status != *opts.Status {
			continue
		}

		instances = append(instances, instance)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})

	return instances, nil
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.FlowInstance, error) {
	var instance models.FlowInstance

	found, err := r.persistence.readDocument(instancesDir, id, &instance)
	if err != nil || !found {
		return nil, err
	}

	return &instance, nil
}

func (r *InstanceRepository) Save(ctx context.Context, instance *models.FlowInstance) error {
	existing, err := r.GetByID(ctx, instance.ID)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	record := *instance
	record.Logs = nil

	if existing != nil {
		record.Logs = existing.Logs
	}

	if err := r.persistence.writeDocument(instancesDir, instance.ID, &record); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) AppendLogs(ctx context.Context, id string, entries ...models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	instance, err := r.GetByID(ctx, id)
	if err != nil {
		return persistence.NewInstanceError("AppendLogs", id, err)
	}

	if instance == nil {
		return persistence.NewInstanceError("AppendLogs", id, persistence.ErrInstanceNotFound)
	}

	instance.Logs = append(instance.Logs, entries...)

	if err := r.persistence.writeDocument(instancesDir, id, instance); err != nil {
		return persistence.NewInstanceError("AppendLogs", id, err)
	}

	return nil
}

func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	instance, err := r.GetByID(ctx, id)
	if err != nil {
		return persistence.NewInstanceError("Delete", id, err)
	}

	if instance == nil {
		return persistence.NewInstanceError("Delete", id, persistence.ErrInstanceNotFound)
	}

	// Dependent documents live inside the record file, so removing the file
	// removes them with it.
	if err := r.persistence.removeDocument(instancesDir, id); err != nil {
		return persistence.NewInstanceError("Delete", id, err)
	}

	return nil
}

// InTransaction serializes mutating operations behind the process-wide lock.
// This gives per-call atomicity against other callers of this process only.
func (r *InstanceRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, repo persistence.InstanceRepository) error) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	return fn(ctx, r)
}
