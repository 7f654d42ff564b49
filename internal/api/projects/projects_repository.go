package projects

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

var _ ProjectsRepo = (*PostgresProjectsRepo)(nil)

type ProjectsRepo interface {
	// ListProjects returns all projects with their bug counts, newest first.
	ListProjects(ctx context.Context) ([]types.Project, error)
	GetProjectByID(ctx context.Context, id int64) (*types.Project, error)
	CreateProject(ctx context.Context, params types.CreateProjectParams) (int64, error)
	UpdateProject(ctx context.Context, id int64, params types.UpdateProjectParams) (int64, error)
	CountProjectBugs(ctx context.Context, id int64) (int, error)

	// DeleteProject removes the project; the bugs FK is RESTRICT, so a
	// concurrent insert cannot orphan bugs even if the caller's pre-check
	// raced.
	DeleteProject(ctx context.Context, id int64) (int64, error)
}

type PostgresProjectsRepo struct {
	logger *slog.Logger
	pgpool database.PGX
}

func NewPostgresProjectsRepo(pgpool database.PGX, logger *slog.Logger) *PostgresProjectsRepo {
	return &PostgresProjectsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresProjectsRepo) ListProjects(ctx context.Context) ([]types.Project, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "ListProjects", trace.WithAttributes(
		attribute.String("db.sql.table", "projects"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		`SELECT p.id, p.name, p.description, p.status, p.created_at, p.updated_at,
                COUNT(b.id) AS bug_count
         FROM projects p
         LEFT JOIN bugs b ON p.id = b.project_id
         GROUP BY p.id
         ORDER BY p.created_at DESC`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error listing projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status,
			&p.CreatedAt, &p.UpdatedAt, &p.BugCount); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *PostgresProjectsRepo) GetProjectByID(ctx context.Context, id int64) (*types.Project, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "GetProjectByID", trace.WithAttributes(
		attribute.String("db.sql.table", "projects"),
		attribute.Int64("db.project.id", id),
	))
	defer span.End()

	var p types.Project
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, name, description, status, created_at, updated_at
         FROM projects WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching project: %w", err)
	}
	return &p, nil
}

func (r *PostgresProjectsRepo) CreateProject(ctx context.Context, params types.CreateProjectParams) (int64, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "CreateProject", trace.WithAttributes(
		attribute.String("db.sql.table", "projects"),
	))
	defer span.End()

	var id int64
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO projects (name, description, status) VALUES ($1, $2, $3) RETURNING id`,
		params.Name, params.Description, params.Status).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to insert project: %w", err)
	}
	return id, nil
}

func (r *PostgresProjectsRepo) UpdateProject(ctx context.Context, id int64, params types.UpdateProjectParams) (int64, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "UpdateProject", trace.WithAttributes(
		attribute.String("db.sql.table", "projects"),
		attribute.Int64("db.project.id", id),
	))
	defer span.End()

	var setClauses []string
	var args []any

	if params.Name != nil && *params.Name != "" {
		args = append(args, *params.Name)
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Description != nil && *params.Description != "" {
		args = append(args, *params.Description)
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.Status != nil && *params.Status != "" {
		args = append(args, *params.Status)
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(setClauses) == 0 {
		return 0, fmt.Errorf("no fields to update: %w", types.ErrValidation)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args))

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to update project: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresProjectsRepo) CountProjectBugs(ctx context.Context, id int64) (int, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "CountProjectBugs", trace.WithAttributes(
		attribute.Int64("db.project.id", id),
	))
	defer span.End()

	var count int
	err := r.pgpool.QueryRow(ctx,
		"SELECT COUNT(*) FROM bugs WHERE project_id = $1", id).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("database error counting project bugs: %w", err)
	}
	return count, nil
}

func (r *PostgresProjectsRepo) DeleteProject(ctx context.Context, id int64) (int64, error) {
	ctx, span := otel.Tracer("ProjectsRepo").Start(ctx, "DeleteProject", trace.WithAttributes(
		attribute.String("db.sql.table", "projects"),
		attribute.Int64("db.project.id", id),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, fmt.Errorf("Cannot delete project with existing bugs: %w", types.ErrConflict)
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete project: %w", err)
	}
	return tag.RowsAffected(), nil
}
