package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bugsage/bugsage/internal/types"
)

var _ ProjectsService = (*ProjectsServiceImpl)(nil)

type ProjectsService interface {
	ListProjects(ctx context.Context) ([]types.Project, error)
	CreateProject(ctx context.Context, params types.CreateProjectParams) (int64, error)
	UpdateProject(ctx context.Context, id int64, params types.UpdateProjectParams) error

	// DeleteProject refuses while any bug still references the project.
	DeleteProject(ctx context.Context, id int64) error
}

type ProjectsServiceImpl struct {
	logger *slog.Logger
	repo   ProjectsRepo
}

func NewProjectsService(repo ProjectsRepo, logger *slog.Logger) *ProjectsServiceImpl {
	return &ProjectsServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ProjectsServiceImpl) ListProjects(ctx context.Context) ([]types.Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectsServiceImpl) CreateProject(ctx context.Context, params types.CreateProjectParams) (int64, error) {
	if params.Name == "" {
		return 0, fmt.Errorf("Project name is required: %w", types.ErrValidation)
	}
	if params.Status == "" {
		params.Status = types.ProjectStatusActive
	}

	id, err := s.repo.CreateProject(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("error creating project: %w", err)
	}

	s.logger.InfoContext(ctx, "Project created", slog.Int64("project_id", id))
	return id, nil
}

func (s *ProjectsServiceImpl) UpdateProject(ctx context.Context, id int64, params types.UpdateProjectParams) error {
	if !params.HasUpdates() {
		return fmt.Errorf("No fields to update: %w", types.ErrValidation)
	}

	rows, err := s.repo.UpdateProject(ctx, id, params)
	if err != nil {
		return fmt.Errorf("error updating project: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Project not found: %w", types.ErrNotFound)
	}
	return nil
}

func (s *ProjectsServiceImpl) DeleteProject(ctx context.Context, id int64) error {
	// Pre-check for the friendly message; the RESTRICT FK closes the race.
	count, err := s.repo.CountProjectBugs(ctx, id)
	if err != nil {
		return fmt.Errorf("error counting project bugs: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("Cannot delete project with existing bugs: %w", types.ErrConflict)
	}

	rows, err := s.repo.DeleteProject(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return err
		}
		return fmt.Errorf("error deleting project: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Project not found: %w", types.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "Project deleted", slog.Int64("project_id", id))
	return nil
}
