package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	database "github.com/bugsage/bugsage/app/db"
	"github.com/bugsage/bugsage/internal/types"
)

var _ DashboardRepo = (*PostgresDashboardRepo)(nil)

type DashboardRepo interface {
	GetStats(ctx context.Context) (*types.DashboardStats, error)
	GetRecentBugs(ctx context.Context, limit int) ([]types.Bug, error)
	GetAssignedBugs(ctx context.Context, userID int64, limit int) ([]types.Bug, error)
	GetStatusDistribution(ctx context.Context) ([]types.StatusCount, error)
	GetPriorityDistribution(ctx context.Context) ([]types.PriorityCount, error)
}

type PostgresDashboardRepo struct {
	logger *slog.Logger
	pgpool database.PGX
}

func NewPostgresDashboardRepo(pgpool database.PGX, logger *slog.Logger) *PostgresDashboardRepo {
	return &PostgresDashboardRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresDashboardRepo) GetStats(ctx context.Context) (*types.DashboardStats, error) {
	ctx, span := otel.Tracer("DashboardRepo").Start(ctx, "GetStats")
	defer span.End()

	var stats types.DashboardStats
	err := r.pgpool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bugs),
			(SELECT COUNT(*) FROM bugs WHERE status = 'open'),
			(SELECT COUNT(*) FROM bugs WHERE status = 'in-progress'),
			(SELECT COUNT(*) FROM bugs WHERE status = 'closed'),
			(SELECT COUNT(*) FROM bugs WHERE priority = 'high' AND status != 'closed'),
			(SELECT COUNT(*) FROM projects WHERE status = 'active')`).
		Scan(&stats.TotalBugs, &stats.OpenBugs, &stats.InProgressBugs,
			&stats.ResolvedBugs, &stats.CriticalBugs, &stats.TotalProjects)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching dashboard stats: %w", err)
	}
	return &stats, nil
}

func (r *PostgresDashboardRepo) bugsQuery(ctx context.Context, query string, args ...any) ([]types.Bug, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing dashboard bugs: %w", err)
	}
	defer rows.Close()

	bugs := []types.Bug{}
	for rows.Next() {
		var bug types.Bug
		if err := rows.Scan(&bug.ID, &bug.Title, &bug.Description, &bug.ProjectID,
			&bug.Priority, &bug.Status, &bug.AssignedTo, &bug.ReportedBy,
			&bug.CreatedAt, &bug.UpdatedAt, &bug.ProjectName); err != nil {
			return nil, fmt.Errorf("database error scanning dashboard bug: %w", err)
		}
		bugs = append(bugs, bug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating dashboard bugs: %w", err)
	}
	return bugs, nil
}

func (r *PostgresDashboardRepo) GetRecentBugs(ctx context.Context, limit int) ([]types.Bug, error) {
	ctx, span := otel.Tracer("DashboardRepo").Start(ctx, "GetRecentBugs")
	defer span.End()

	return r.bugsQuery(ctx, `
		SELECT b.id, b.title, b.description, b.project_id, b.priority, b.status,
		       b.assigned_to, b.reported_by, b.created_at, b.updated_at,
		       COALESCE(p.name, '') AS project_name
		FROM bugs b
		LEFT JOIN projects p ON b.project_id = p.id
		ORDER BY b.created_at DESC
		LIMIT $1`, limit)
}

func (r *PostgresDashboardRepo) GetAssignedBugs(ctx context.Context, userID int64, limit int) ([]types.Bug, error) {
	ctx, span := otel.Tracer("DashboardRepo").Start(ctx, "GetAssignedBugs", trace.WithAttributes(
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()

	return r.bugsQuery(ctx, `
		SELECT b.id, b.title, b.description, b.project_id, b.priority, b.status,
		       b.assigned_to, b.reported_by, b.created_at, b.updated_at,
		       COALESCE(p.name, '') AS project_name
		FROM bugs b
		LEFT JOIN projects p ON b.project_id = p.id
		WHERE b.assigned_to = $1
		ORDER BY b.created_at DESC
		LIMIT $2`, userID, limit)
}

func (r *PostgresDashboardRepo) GetStatusDistribution(ctx context.Context) ([]types.StatusCount, error) {
	ctx, span := otel.Tracer("DashboardRepo").Start(ctx, "GetStatusDistribution")
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT status, COUNT(*) FROM bugs GROUP BY status")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching status distribution: %w", err)
	}
	defer rows.Close()

	dist := []types.StatusCount{}
	for rows.Next() {
		var sc types.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning status distribution: %w", err)
		}
		dist = append(dist, sc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error iterating status distribution: %w", err)
	}
	return dist, nil
}

func (r *PostgresDashboardRepo) GetPriorityDistribution(ctx context.Context) ([]types.PriorityCount, error) {
	ctx, span := otel.Tracer("DashboardRepo").Start(ctx, "GetPriorityDistribution")
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT priority, COUNT(*) FROM bugs GROUP BY priority")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching priority distribution: %w", err)
	}
	defer rows.Close()

	dist := []types.PriorityCount{}
	for rows.Next() {
		var pc types.PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning priority distribution: %w", err)
		}
		dist = append(dist, pc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error iterating priority distribution: %w", err)
	}
	return dist, nil
}
