package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/reviewflow/internal/application/port"
	"github.com/garyjia/reviewflow/internal/domain/workflow"
	"github.com/garyjia/reviewflow/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository on SQLite.
// The workflows row holds the current snapshot and version; workflow_snapshots
// holds the append-only history.
type WorkflowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sqlite.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the workflow row and its initial history
func (r *WorkflowRepository) Create(ctx context.Context, w *workflow.Workflow) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		current := w.Current()
		query := `
			INSERT INTO workflows (
				id, owner_id, tracked_item_id, editor_id, phase, is_open, version
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			w.ID(),
			w.OwnerID(),
			current.TrackedItemID,
			nullableString(current.EditorID),
			current.Phase,
			w.IsOpen(),
			w.Version(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: tracked item %s", workflow.ErrDuplicateActiveWorkflow, current.TrackedItemID)
			}
			r.logger.Error("Failed to create workflow",
				zap.String("workflow_id", w.ID()),
				zap.String("tracked_item_id", current.TrackedItemID),
				zap.Error(err))
			return fmt.Errorf("failed to create workflow: %w", err)
		}

		return r.insertSnapshots(txCtx, w.ID(), w.History(), 0)
	})
}

// loadQuery reads a workflow row together with its snapshots. It is one
// statement so the version and the history come from the same read snapshot.
const loadQuery = `
	SELECT w.id, w.owner_id, w.is_open, w.version,
		s.owner_id, s.editor_id, s.tracked_item_id, s.phase
	FROM workflows w
	JOIN workflow_snapshots s ON s.workflow_id = w.id
	WHERE %s
	ORDER BY s.seq
`

// GetByID loads a workflow and its full history
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*workflow.Workflow, error) {
	return r.load(ctx, fmt.Sprintf(loadQuery, "w.id = ?"), id)
}

// GetOpenByTrackedItemID loads the open workflow for a tracked item
func (r *WorkflowRepository) GetOpenByTrackedItemID(ctx context.Context, trackedItemID string) (*workflow.Workflow, error) {
	return r.load(ctx, fmt.Sprintf(loadQuery, "w.tracked_item_id = ? AND w.is_open = 1"), trackedItemID)
}

// load rebuilds at most one workflow from rows shaped by loadQuery
func (r *WorkflowRepository) load(ctx context.Context, query string, args ...interface{}) (*workflow.Workflow, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load workflow", zap.Any("args", args), zap.Error(err))
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	defer rows.Close()

	var (
		id      string
		ownerID string
		open    bool
		version int64
		history []workflow.Snapshot
	)
	for rows.Next() {
		var snap workflow.Snapshot
		var editorID sql.NullString

		if err := rows.Scan(&id, &ownerID, &open, &version,
			&snap.OwnerID, &editorID, &snap.TrackedItemID, &snap.Phase); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		snap.EditorID = editorID.String

		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	if int64(len(history)) != version {
		return nil, fmt.Errorf("%w: workflow %s has version %d but %d snapshots",
			workflow.ErrCorruptHistory, id, version, len(history))
	}

	return workflow.Restore(id, ownerID, open, history)
}

// ListOpenByPhase returns the current snapshot of every open workflow in phase
func (r *WorkflowRepository) ListOpenByPhase(ctx context.Context, phase workflow.Phase) ([]workflow.Snapshot, error) {
	query := `
		SELECT owner_id, editor_id, tracked_item_id, phase
		FROM workflows
		WHERE is_open = 1 AND phase = ?
		ORDER BY created_at, id
	`
	return r.listSnapshots(ctx, query, phase)
}

// ListOwnerOpenByPhase returns the current snapshot of an owner's open workflows in phase
func (r *WorkflowRepository) ListOwnerOpenByPhase(ctx context.Context, ownerID string, phase workflow.Phase) ([]workflow.Snapshot, error) {
	query := `
		SELECT owner_id, editor_id, tracked_item_id, phase
		FROM workflows
		WHERE owner_id = ? AND is_open = 1 AND phase = ?
		ORDER BY created_at, id
	`
	return r.listSnapshots(ctx, query, ownerID, phase)
}

// Update writes the new current state only if the stored version still equals
// expectedVersion, then appends the snapshots recorded since that version.
func (r *WorkflowRepository) Update(ctx context.Context, w *workflow.Workflow, expectedVersion int64) error {
	history := w.History()
	if expectedVersion < 1 || expectedVersion >= int64(len(history)) {
		return fmt.Errorf("workflow %s: no snapshots after version %d", w.ID(), expectedVersion)
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		current := w.Current()
		query := `
			UPDATE workflows
			SET editor_id = ?, phase = ?, is_open = ?, version = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?
		`

		res, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			nullableString(current.EditorID),
			current.Phase,
			w.IsOpen(),
			w.Version(),
			w.ID(),
			expectedVersion,
		)
		if err != nil {
			r.logger.Error("Failed to update workflow",
				zap.String("workflow_id", w.ID()),
				zap.Int64("expected_version", expectedVersion),
				zap.Error(err))
			return fmt.Errorf("failed to update workflow: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return r.classifyMissedUpdate(txCtx, w.ID(), expectedVersion)
		}

		return r.insertSnapshots(txCtx, w.ID(), history[expectedVersion:], expectedVersion)
	})
}

// classifyMissedUpdate distinguishes a lost race from a missing row
func (r *WorkflowRepository) classifyMissedUpdate(ctx context.Context, id string, expectedVersion int64) error {
	var stored int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT version FROM workflows WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read workflow version: %w", err)
	}

	r.logger.Info("Conditional workflow update lost race",
		zap.String("workflow_id", id),
		zap.Int64("expected_version", expectedVersion),
		zap.Int64("stored_version", stored))
	return fmt.Errorf("%w: workflow %s is at version %d, expected %d",
		workflow.ErrConcurrentModification, id, stored, expectedVersion)
}

// insertSnapshots appends snapshots numbered from firstSeq
func (r *WorkflowRepository) insertSnapshots(ctx context.Context, workflowID string, snapshots []workflow.Snapshot, firstSeq int64) error {
	query := `
		INSERT INTO workflow_snapshots (
			workflow_id, seq, owner_id, editor_id, tracked_item_id, phase
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	for i, snap := range snapshots {
		seq := firstSeq + int64(i)
		_, err := r.db.Executor(ctx).ExecContext(ctx, query,
			workflowID,
			seq,
			snap.OwnerID,
			nullableString(snap.EditorID),
			snap.TrackedItemID,
			snap.Phase,
		)
		if err != nil {
			r.logger.Error("Failed to append workflow snapshot",
				zap.String("workflow_id", workflowID),
				zap.Int64("seq", seq),
				zap.Error(err))
			return fmt.Errorf("failed to append snapshot %d: %w", seq, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) listSnapshots(ctx context.Context, query string, args ...interface{}) ([]workflow.Snapshot, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query snapshots", zap.Error(err))
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []workflow.Snapshot{}
	for rows.Next() {
		var snap workflow.Snapshot
		var editorID sql.NullString

		if err := rows.Scan(&snap.OwnerID, &editorID, &snap.TrackedItemID, &snap.Phase); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.EditorID = editorID.String

		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
