package bugs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugsage/bugsage/internal/types"
)

var bugRowColumns = []string{
	"id", "title", "description", "project_id", "priority", "status",
	"assigned_to", "reported_by", "created_at", "updated_at",
	"project_name", "assigned_to_name",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresBugsRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresBugsRepo(mockPool, slog.Default())
}

func TestCountBugs(t *testing.T) {
	t.Run("NoFilter", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM bugs b`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

		total, err := repo.CountBugs(context.Background(), types.BugFilter{})

		assert.NoError(t, err)
		assert.Equal(t, 7, total)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("FilterBecomesWhereClause", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		projectID := int64(3)
		status := types.StatusOpen
		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM bugs b WHERE b\.project_id = \$1 AND b\.status = \$2`).
			WithArgs(projectID, status).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

		total, err := repo.CountBugs(context.Background(), types.BugFilter{
			ProjectID: &projectID,
			Status:    &status,
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestListBugsQuery(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	now := time.Now()
	assignee := int64(3)
	name := "someone"
	mockPool.ExpectQuery(`ORDER BY b\.created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 40).
		WillReturnRows(pgxmock.NewRows(bugRowColumns).
			AddRow(int64(1), "Crash on save", "details", int64(3), "high", "open",
				&assignee, int64(2), now, now, "Website", &name))

	bugs, err := repo.ListBugs(context.Background(), types.BugFilter{}, 20, 40)

	assert.NoError(t, err)
	require.Len(t, bugs, 1)
	assert.Equal(t, "Crash on save", bugs[0].Title)
	assert.Equal(t, "Website", bugs[0].ProjectName)
	require.NotNil(t, bugs[0].AssignedToName)
	assert.Equal(t, "someone", *bugs[0].AssignedToName)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetBugByIDNotFound(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	mockPool.ExpectQuery(`WHERE b\.id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(bugRowColumns))

	bug, err := repo.GetBugByID(context.Background(), 404)

	assert.Nil(t, bug)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateBugInsert(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		params := types.CreateBugParams{
			Title:       "Crash on save",
			Description: "details",
			ProjectID:   3,
			Priority:    types.PriorityMedium,
		}
		mockPool.ExpectQuery(`INSERT INTO bugs`).
			WithArgs(params.Title, params.Description, params.ProjectID,
				params.Priority, params.AssignedTo, int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

		id, err := repo.CreateBug(context.Background(), 2, params)

		assert.NoError(t, err)
		assert.Equal(t, int64(11), id)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ForeignKeyViolation", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`INSERT INTO bugs`).
			WithArgs("t", "d", int64(999), types.PriorityMedium, (*int64)(nil), int64(2)).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		_, err := repo.CreateBug(context.Background(), 2, types.CreateBugParams{
			Title: "t", Description: "d", ProjectID: 999, Priority: types.PriorityMedium,
		})

		assert.ErrorIs(t, err, types.ErrValidation)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUpdateBugSetClauses(t *testing.T) {
	t.Run("OnlyProvidedFields", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		title := "new title"
		mockPool.ExpectExec(`UPDATE bugs SET title = \$1, updated_at = now\(\) WHERE id = \$2`).
			WithArgs(title, int64(10)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		rows, err := repo.UpdateBug(context.Background(), 10, types.UpdateBugParams{Title: &title})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("EmptyStringsSkipped", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		empty := ""
		status := types.StatusClosed
		mockPool.ExpectExec(`UPDATE bugs SET status = \$1, updated_at = now\(\) WHERE id = \$2`).
			WithArgs(status, int64(10)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		rows, err := repo.UpdateBug(context.Background(), 10, types.UpdateBugParams{
			Title:  &empty,
			Status: &status,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ExplicitNullAssignee", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE bugs SET assigned_to = \$1, updated_at = now\(\) WHERE id = \$2`).
			WithArgs((*int64)(nil), int64(10)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		rows, err := repo.UpdateBug(context.Background(), 10, types.UpdateBugParams{
			AssignedTo: types.OptionalInt64{Set: true, Value: nil},
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NothingToUpdate", func(t *testing.T) {
		_, repo := newMockRepo(t)

		_, err := repo.UpdateBug(context.Background(), 10, types.UpdateBugParams{})

		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestDeleteBugExec(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	mockPool.ExpectExec(`DELETE FROM bugs WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rows, err := repo.DeleteBug(context.Background(), 10)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
