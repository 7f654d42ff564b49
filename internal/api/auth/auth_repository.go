package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	database "github.com/bugsage/bugsage/app/db"
	"github.com/bugsage/bugsage/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	// GetUserByLogin looks a user up by username OR email, including the
	// password hash. Returns types.ErrNotFound when no row matches.
	GetUserByLogin(ctx context.Context, login string) (*types.User, error)

	// GetUserByID fetches a user by id without the password hash.
	GetUserByID(ctx context.Context, id int64) (*types.User, error)

	// LoginExists reports whether the username or email is already taken.
	LoginExists(ctx context.Context, username, email string) (bool, error)

	// CreateUser inserts a new active user with role 'user' and returns it.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error)

	// UpdateLastLogin stamps last_login for a successful login.
	UpdateLastLogin(ctx context.Context, id int64) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool database.PGX
}

func NewPostgresAuthRepo(pgpool database.PGX, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresAuthRepo) GetUserByLogin(ctx context.Context, login string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByLogin", trace.WithAttributes(
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var user types.User
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, status, created_at, last_login
         FROM users WHERE username = $1 OR email = $1`,
		login).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Status, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", id),
	))
	defer span.End()

	var user types.User
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, username, email, role, status, created_at, last_login
         FROM users WHERE id = $1`,
		id).Scan(&user.ID, &user.Username, &user.Email,
		&user.Role, &user.Status, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) LoginExists(ctx context.Context, username, email string) (bool, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "LoginExists")
	defer span.End()

	var id int64
	err := r.pgpool.QueryRow(ctx,
		"SELECT id FROM users WHERE username = $1 OR email = $2",
		username, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		span.RecordError(err)
		return false, fmt.Errorf("database error checking user existence: %w", err)
	}
	return true, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	user := types.User{
		Username: username,
		Email:    email,
		Role:     types.RoleUser,
		Status:   types.UserStatusActive,
	}
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role, status)
         VALUES ($1, $2, $3, 'user', 'active')
         RETURNING id, created_at`,
		username, email, passwordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		// Unique violations race the pre-check; surface them as conflicts.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("username or email already exists: %w", types.ErrConflict)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateLastLogin", trace.WithAttributes(
		attribute.Int64("db.user.id", id),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx,
		"UPDATE users SET last_login = $1 WHERE id = $2",
		time.Now(), id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update last_login: %w", err)
	}
	return nil
}
