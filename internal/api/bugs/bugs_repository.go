package bugs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	database "github.com/bugsage/bugsage/app/db"
	"github.com/bugsage/bugsage/internal/types"
)

var _ BugsRepo = (*PostgresBugsRepo)(nil)

type BugsRepo interface {
	CountBugs(ctx context.Context, filter types.BugFilter) (int, error)
	ListBugs(ctx context.Context, filter types.BugFilter, limit, offset int) ([]types.Bug, error)
	GetBugByID(ctx context.Context, id int64) (*types.Bug, error)
	CreateBug(ctx context.Context, reporterID int64, params types.CreateBugParams) (int64, error)

	// UpdateBug applies the set fields and refreshes updated_at; returns the
	// number of rows affected.
	UpdateBug(ctx context.Context, id int64, params types.UpdateBugParams) (int64, error)
	UpdateBugStatus(ctx context.Context, id int64, status string) (int64, error)
	DeleteBug(ctx context.Context, id int64) (int64, error)
}

type PostgresBugsRepo struct {
	logger *slog.Logger
	pgpool database.PGX
}

func NewPostgresBugsRepo(pgpool database.PGX, logger *slog.Logger) *PostgresBugsRepo {
	return &PostgresBugsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const bugColumns = `b.id, b.title, b.description, b.project_id, b.priority, b.status,
       b.assigned_to, b.reported_by, b.created_at, b.updated_at,
       COALESCE(p.name, '') AS project_name, u.username AS assigned_to_name`

const bugJoins = `FROM bugs b
       LEFT JOIN projects p ON b.project_id = p.id
       LEFT JOIN users u ON b.assigned_to = u.id`

// buildFilter turns the typed filter into a WHERE clause plus its args.
// Unset fields are omitted entirely.
func buildFilter(filter types.BugFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conds = append(conds, fmt.Sprintf("b.project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conds = append(conds, fmt.Sprintf("b.priority = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		conds = append(conds, fmt.Sprintf("b.assigned_to = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanBug(row pgx.Row, bug *types.Bug) error {
	return row.Scan(&bug.ID, &bug.Title, &bug.Description, &bug.ProjectID,
		&bug.Priority, &bug.Status, &bug.AssignedTo, &bug.ReportedBy,
		&bug.CreatedAt, &bug.UpdatedAt, &bug.ProjectName, &bug.AssignedToName)
}

func (r *PostgresBugsRepo) CountBugs(ctx context.Context, filter types.BugFilter) (int, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "CountBugs", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
	))
	defer span.End()

	where, args := buildFilter(filter)
	var total int
	err := r.pgpool.QueryRow(ctx, "SELECT COUNT(*) FROM bugs b "+where, args...).Scan(&total)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("database error counting bugs: %w", err)
	}
	return total, nil
}

func (r *PostgresBugsRepo) ListBugs(ctx context.Context, filter types.BugFilter, limit, offset int) ([]types.Bug, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "ListBugs", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
	))
	defer span.End()

	where, args := buildFilter(filter)
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY b.created_at DESC LIMIT $%d OFFSET $%d`,
		bugColumns, bugJoins, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error listing bugs: %w", err)
	}
	defer rows.Close()

	bugs := []types.Bug{}
	for rows.Next() {
		var bug types.Bug
		if err := scanBug(rows, &bug); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning bug: %w", err)
		}
		bugs = append(bugs, bug)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error iterating bugs: %w", err)
	}
	return bugs, nil
}

func (r *PostgresBugsRepo) GetBugByID(ctx context.Context, id int64) (*types.Bug, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "GetBugByID", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
		attribute.Int64("db.bug.id", id),
	))
	defer span.End()

	var bug types.Bug
	query := fmt.Sprintf("SELECT %s %s WHERE b.id = $1", bugColumns, bugJoins)
	err := scanBug(r.pgpool.QueryRow(ctx, query, id), &bug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bug not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching bug: %w", err)
	}
	return &bug, nil
}

func (r *PostgresBugsRepo) CreateBug(ctx context.Context, reporterID int64, params types.CreateBugParams) (int64, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "CreateBug", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
	))
	defer span.End()

	var id int64
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO bugs (title, description, project_id, priority, status, assigned_to, reported_by)
         VALUES ($1, $2, $3, $4, 'open', $5, $6)
         RETURNING id`,
		params.Title, params.Description, params.ProjectID, params.Priority,
		params.AssignedTo, reporterID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, fmt.Errorf("project or assignee does not exist: %w", types.ErrValidation)
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to insert bug: %w", err)
	}
	return id, nil
}

func (r *PostgresBugsRepo) UpdateBug(ctx context.Context, id int64, params types.UpdateBugParams) (int64, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "UpdateBug", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
		attribute.Int64("db.bug.id", id),
	))
	defer span.End()

	var setClauses []string
	var args []any

	if params.Title != nil && *params.Title != "" {
		args = append(args, *params.Title)
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", len(args)))
	}
	if params.Description != nil && *params.Description != "" {
		args = append(args, *params.Description)
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.Priority != nil && *params.Priority != "" {
		args = append(args, *params.Priority)
		setClauses = append(setClauses, fmt.Sprintf("priority = $%d", len(args)))
	}
	if params.Status != nil && *params.Status != "" {
		args = append(args, *params.Status)
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", len(args)))
	}
	// assigned_to applies whenever the key was present, null included.
	if params.AssignedTo.Set {
		args = append(args, params.AssignedTo.Value)
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	if len(setClauses) == 0 {
		return 0, fmt.Errorf("no fields to update: %w", types.ErrValidation)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE bugs SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args))

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to update bug: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresBugsRepo) UpdateBugStatus(ctx context.Context, id int64, status string) (int64, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "UpdateBugStatus", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
		attribute.Int64("db.bug.id", id),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		"UPDATE bugs SET status = $1, updated_at = now() WHERE id = $2",
		status, id)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to update bug status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresBugsRepo) DeleteBug(ctx context.Context, id int64) (int64, error) {
	ctx, span := otel.Tracer("BugsRepo").Start(ctx, "DeleteBug", trace.WithAttributes(
		attribute.String("db.sql.table", "bugs"),
		attribute.Int64("db.bug.id", id),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, "DELETE FROM bugs WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete bug: %w", err)
	}
	return tag.RowsAffected(), nil
}
