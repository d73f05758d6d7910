package port

import (
	"context"

	"github.com/garyjia/reviewflow/internal/domain/workflow"
)

// WorkflowRepository persists workflow aggregates.
// Lookups return (nil, nil) when no row matches.
type WorkflowRepository interface {
	// Create inserts a new workflow with its full history.
	// Returns workflow.ErrDuplicateActiveWorkflow when the tracked item already has
	// an open workflow; the store enforces this with a uniqueness constraint.
	Create(ctx context.Context, w *workflow.Workflow) error

	// GetByID loads a workflow and its history
	GetByID(ctx context.Context, id string) (*workflow.Workflow, error)

	// GetOpenByTrackedItemID loads the open workflow for a tracked item
	GetOpenByTrackedItemID(ctx context.Context, trackedItemID string) (*workflow.Workflow, error)

	// ListOpenByPhase returns the current snapshot of every open workflow in phase
	ListOpenByPhase(ctx context.Context, phase workflow.Phase) ([]workflow.Snapshot, error)

	// ListOwnerOpenByPhase is ListOpenByPhase restricted to one owner
	ListOwnerOpenByPhase(ctx context.Context, ownerID string, phase workflow.Phase) ([]workflow.Snapshot, error)

	// Update persists the snapshots appended since expectedVersion, but only if the
	// stored version still equals expectedVersion. Returns
	// workflow.ErrConcurrentModification when another writer got there first and
	// workflow.ErrWorkflowNotFound when the row does not exist.
	Update(ctx context.Context, w *workflow.Workflow, expectedVersion int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
