package bugs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bugsage/bugsage/internal/types"
)

var _ BugsService = (*BugsServiceImpl)(nil)

type BugsService interface {
	// ListBugs returns one page of bugs, newest first, with the pagination
	// block computed from the unfiltered-by-page total.
	ListBugs(ctx context.Context, filter types.BugFilter, page, limit int) (*types.BugPage, error)

	CreateBug(ctx context.Context, reporterID int64, params types.CreateBugParams) (*types.Bug, error)

	// UpdateBug applies a partial update. Only admins, the current assignee,
	// or the original reporter may modify a bug.
	UpdateBug(ctx context.Context, callerID int64, callerRole string, id int64, params types.UpdateBugParams) error

	// UpdateBugStatus is the narrow status-only mutation used by the kanban
	// board; same permission rule as UpdateBug.
	UpdateBugStatus(ctx context.Context, callerID int64, callerRole string, id int64, status string) error

	DeleteBug(ctx context.Context, id int64) error
}

type BugsServiceImpl struct {
	logger      *slog.Logger
	repo        BugsRepo
	defaultPage int
}

func NewBugsService(repo BugsRepo, defaultPageSize int, logger *slog.Logger) *BugsServiceImpl {
	return &BugsServiceImpl{
		logger:      logger,
		repo:        repo,
		defaultPage: defaultPageSize,
	}
}

// canModify implements the mutation permission rule: admin, assignee, or
// reporter.
func canModify(bug *types.Bug, callerID int64, callerRole string) bool {
	if callerRole == types.RoleAdmin {
		return true
	}
	if bug.AssignedTo != nil && *bug.AssignedTo == callerID {
		return true
	}
	return bug.ReportedBy == callerID
}

func (s *BugsServiceImpl) ListBugs(ctx context.Context, filter types.BugFilter, page, limit int) (*types.BugPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultPage
	}

	total, err := s.repo.CountBugs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error counting bugs: %w", err)
	}

	offset := (page - 1) * limit
	list, err := s.repo.ListBugs(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing bugs: %w", err)
	}

	return &types.BugPage{
		Bugs: list,
		Pagination: types.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

func (s *BugsServiceImpl) CreateBug(ctx context.Context, reporterID int64, params types.CreateBugParams) (*types.Bug, error) {
	if params.Title == "" || params.Description == "" || params.ProjectID == 0 {
		return nil, fmt.Errorf("Title, description, and project are required: %w", types.ErrValidation)
	}
	if params.Priority == "" {
		params.Priority = types.PriorityMedium
	}
	if params.Priority != types.PriorityLow && params.Priority != types.PriorityMedium && params.Priority != types.PriorityHigh {
		return nil, fmt.Errorf("Invalid priority: %w", types.ErrValidation)
	}
	// assigned_to of 0 means unassigned.
	if params.AssignedTo != nil && *params.AssignedTo == 0 {
		params.AssignedTo = nil
	}

	id, err := s.repo.CreateBug(ctx, reporterID, params)
	if err != nil {
		return nil, fmt.Errorf("error creating bug: %w", err)
	}

	bug, err := s.repo.GetBugByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching created bug: %w", err)
	}

	s.logger.InfoContext(ctx, "Bug created",
		slog.Int64("bug_id", id), slog.Int64("reported_by", reporterID))
	return bug, nil
}

func (s *BugsServiceImpl) UpdateBug(ctx context.Context, callerID int64, callerRole string, id int64, params types.UpdateBugParams) error {
	bug, err := s.repo.GetBugByID(ctx, id)
	if err != nil {
		return err
	}

	if !canModify(bug, callerID, callerRole) {
		return fmt.Errorf("Permission denied: %w", types.ErrForbidden)
	}

	if !params.HasUpdates() {
		return fmt.Errorf("No fields to update: %w", types.ErrValidation)
	}
	if params.Status != nil && *params.Status != "" && !types.ValidBugStatus(*params.Status) {
		return fmt.Errorf("Invalid status: %w", types.ErrValidation)
	}
	if params.Priority != nil && *params.Priority != "" &&
		*params.Priority != types.PriorityLow && *params.Priority != types.PriorityMedium && *params.Priority != types.PriorityHigh {
		return fmt.Errorf("Invalid priority: %w", types.ErrValidation)
	}

	rows, err := s.repo.UpdateBug(ctx, id, params)
	if err != nil {
		return fmt.Errorf("error updating bug: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Bug not found: %w", types.ErrNotFound)
	}
	return nil
}

func (s *BugsServiceImpl) UpdateBugStatus(ctx context.Context, callerID int64, callerRole string, id int64, status string) error {
	if !types.ValidBugStatus(status) {
		return fmt.Errorf("Invalid status: %w", types.ErrValidation)
	}

	bug, err := s.repo.GetBugByID(ctx, id)
	if err != nil {
		return err
	}

	if !canModify(bug, callerID, callerRole) {
		return fmt.Errorf("Permission denied: %w", types.ErrForbidden)
	}

	rows, err := s.repo.UpdateBugStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("error updating bug status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Bug not found: %w", types.ErrNotFound)
	}
	return nil
}

func (s *BugsServiceImpl) DeleteBug(ctx context.Context, id int64) error {
	rows, err := s.repo.DeleteBug(ctx, id)
	if err != nil {
		return fmt.Errorf("error deleting bug: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Bug not found: %w", types.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "Bug deleted", slog.Int64("bug_id", id))
	return nil
}
