package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/reviewflow/internal/application/port"
	"github.com/garyjia/reviewflow/internal/domain/event"
	"github.com/garyjia/reviewflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowManager creates, advances and queries review workflows
type WorkflowManager interface {
	CreateWorkflow(ctx context.Context, ownerID, trackedItemID string) (string, error)
	GetCurrentPhase(ctx context.Context, id string) (workflow.Phase, error)
	GetNextPhases(ctx context.Context, id string, p workflow.Principal) ([]workflow.Phase, error)
	Transition(ctx context.Context, id string, desired workflow.Phase, p workflow.Principal) (workflow.Phase, error)
	ListOpenByPhase(ctx context.Context, phase workflow.Phase) ([]workflow.Snapshot, error)
	ListOwnerOpenByPhase(ctx context.Context, p workflow.Principal, phase workflow.Phase) ([]workflow.Snapshot, error)
	GetCurrentSnapshot(ctx context.Context, id string) (workflow.Snapshot, error)
	FindOpenWorkflowForItem(ctx context.Context, trackedItemID string) (string, workflow.Snapshot, error)
	GetHistory(ctx context.Context, id string) ([]workflow.Snapshot, error)
}

type workflowManagerImpl struct {
	repo      port.WorkflowRepository
	publisher port.EventPublisher
	logger    Logger
	newID     func() string
}

// ManagerOption configures the workflow manager
type ManagerOption func(*workflowManagerImpl)

// WithPublisher sets where committed workflow events are sent
func WithPublisher(publisher port.EventPublisher) ManagerOption {
	return func(m *workflowManagerImpl) {
		m.publisher = publisher
	}
}

// WithIDGenerator overrides uuid-based workflow ids
func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *workflowManagerImpl) {
		m.newID = newID
	}
}

// NewWorkflowManager creates a new WorkflowManager
func NewWorkflowManager(repo port.WorkflowRepository, logger Logger, opts ...ManagerOption) WorkflowManager {
	m := &workflowManagerImpl{
		repo:   repo,
		logger: logger,
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateWorkflow opens a workflow for a tracked item that has no open workflow
func (m *workflowManagerImpl) CreateWorkflow(ctx context.Context, ownerID, trackedItemID string) (string, error) {
	existing, err := m.repo.GetOpenByTrackedItemID(ctx, trackedItemID)
	if err != nil {
		m.logger.Error("Failed to check for open workflow", "error", err, "tracked_item_id", trackedItemID)
		return "", fmt.Errorf("check open workflow: %w", err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w: tracked item %s (workflow %s)",
			workflow.ErrDuplicateActiveWorkflow, trackedItemID, existing.ID())
	}

	w := workflow.New(m.newID(), ownerID, trackedItemID)
	if err := m.repo.Create(ctx, w); err != nil {
		m.logger.Error("Failed to create workflow", "error", err, "tracked_item_id", trackedItemID)
		return "", err
	}

	m.logger.Info("Workflow created", "workflow_id", w.ID(), "owner_id", ownerID, "tracked_item_id", trackedItemID)
	m.publish(ctx, event.NewEvent(event.TypeWorkflowCreated, w.ID(), trackedItemID, map[string]interface{}{
		event.KeyOwnerID: ownerID,
		event.KeyToPhase: string(w.Phase()),
		event.KeyVersion: w.Version(),
	}))

	return w.ID(), nil
}

// GetCurrentPhase returns the phase the workflow is in
func (m *workflowManagerImpl) GetCurrentPhase(ctx context.Context, id string) (workflow.Phase, error) {
	w, err := m.load(ctx, id)
	if err != nil {
		return "", err
	}
	return w.Phase(), nil
}

// GetNextPhases returns the phases p may move the workflow to.
// A missing or closed workflow has no next phases.
func (m *workflowManagerImpl) GetNextPhases(ctx context.Context, id string, p workflow.Principal) ([]workflow.Phase, error) {
	w, err := m.repo.GetByID(ctx, id)
	if err != nil {
		m.logger.Error("Failed to get workflow", "error", err, "workflow_id", id)
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if w == nil || !w.IsOpen() {
		return []workflow.Phase{}, nil
	}
	return w.NextPhases(p), nil
}

// Transition moves the workflow to desired if p is allowed to.
// The write only lands if nobody else advanced the workflow since it was loaded.
func (m *workflowManagerImpl) Transition(ctx context.Context, id string, desired workflow.Phase, p workflow.Principal) (workflow.Phase, error) {
	if !desired.IsValid() {
		return "", fmt.Errorf("%w: %q", workflow.ErrInvalidPhase, desired)
	}

	w, err := m.load(ctx, id)
	if err != nil {
		return "", err
	}

	from := w.Phase()
	expected := w.Version()
	if _, err := w.Transition(desired, p); err != nil {
		m.logger.Info("Transition rejected", "workflow_id", id, "from", from, "to", desired, "principal", p.ID)
		return "", err
	}

	if err := m.repo.Update(ctx, w, expected); err != nil {
		m.logger.Error("Failed to persist transition", "error", err, "workflow_id", id, "from", from, "to", desired)
		return "", err
	}

	m.logger.Info("Workflow transitioned", "workflow_id", id, "from", from, "to", desired, "principal", p.ID)

	current := w.Current()
	changed := event.NewEvent(event.TypePhaseChanged, id, current.TrackedItemID, map[string]interface{}{
		event.KeyFromPhase: string(from),
		event.KeyToPhase:   string(desired),
		event.KeyActorID:   p.ID,
		event.KeyOwnerID:   current.OwnerID,
		event.KeyEditorID:  current.EditorID,
		event.KeyVersion:   w.Version(),
	})
	m.publish(ctx, changed)
	if !w.IsOpen() {
		m.publish(ctx, event.NewEventWithCorrelation(event.TypeWorkflowClosed, id, current.TrackedItemID, map[string]interface{}{
			event.KeyActorID: p.ID,
			event.KeyVersion: w.Version(),
		}, changed.CorrelationID))
	}

	return desired, nil
}

// ListOpenByPhase returns the current snapshot of every open workflow in phase
func (m *workflowManagerImpl) ListOpenByPhase(ctx context.Context, phase workflow.Phase) ([]workflow.Snapshot, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidPhase, phase)
	}

	snapshots, err := m.repo.ListOpenByPhase(ctx, phase)
	if err != nil {
		m.logger.Error("Failed to list workflows", "error", err, "phase", phase)
		return nil, fmt.Errorf("list open workflows: %w", err)
	}
	return snapshots, nil
}

// ListOwnerOpenByPhase returns the open workflows in phase that p owns
func (m *workflowManagerImpl) ListOwnerOpenByPhase(ctx context.Context, p workflow.Principal, phase workflow.Phase) ([]workflow.Snapshot, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidPhase, phase)
	}
	if p.ID == "" {
		return []workflow.Snapshot{}, nil
	}

	snapshots, err := m.repo.ListOwnerOpenByPhase(ctx, p.ID, phase)
	if err != nil {
		m.logger.Error("Failed to list owner workflows", "error", err, "owner_id", p.ID, "phase", phase)
		return nil, fmt.Errorf("list owner workflows: %w", err)
	}
	return snapshots, nil
}

// GetCurrentSnapshot returns a copy of the workflow's current state
func (m *workflowManagerImpl) GetCurrentSnapshot(ctx context.Context, id string) (workflow.Snapshot, error) {
	w, err := m.load(ctx, id)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return w.Current(), nil
}

// FindOpenWorkflowForItem returns the id and current state of the item's open workflow
func (m *workflowManagerImpl) FindOpenWorkflowForItem(ctx context.Context, trackedItemID string) (string, workflow.Snapshot, error) {
	w, err := m.repo.GetOpenByTrackedItemID(ctx, trackedItemID)
	if err != nil {
		m.logger.Error("Failed to find open workflow", "error", err, "tracked_item_id", trackedItemID)
		return "", workflow.Snapshot{}, fmt.Errorf("find open workflow: %w", err)
	}
	if w == nil {
		return "", workflow.Snapshot{}, fmt.Errorf("%w: no open workflow for tracked item %s",
			workflow.ErrWorkflowNotFound, trackedItemID)
	}
	return w.ID(), w.Current(), nil
}

// GetHistory returns every snapshot of the workflow, earliest first
func (m *workflowManagerImpl) GetHistory(ctx context.Context, id string) ([]workflow.Snapshot, error) {
	w, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.History(), nil
}

func (m *workflowManagerImpl) load(ctx context.Context, id string) (*workflow.Workflow, error) {
	w, err := m.repo.GetByID(ctx, id)
	if err != nil {
		m.logger.Error("Failed to get workflow", "error", err, "workflow_id", id)
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	return w, nil
}

// publish sends evt after commit; handler failures are logged only
func (m *workflowManagerImpl) publish(ctx context.Context, evt *event.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Dispatch(ctx, evt); err != nil {
		m.logger.Error("Failed to publish workflow event",
			"error", err,
			"event_type", evt.Type,
			"workflow_id", evt.WorkflowID,
		)
	}
}
