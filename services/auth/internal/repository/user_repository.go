package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/securepulse/securepulse/services/auth/internal/domain"
)

const (
	queryTimeout = 3 * time.Second

	// SQLSTATE unique_violation
	uniqueViolation = "23505"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.NewUser) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type userRepository struct {
	db Querier
}

func NewUserRepository(db Querier) UserRepository {
	return &userRepository{db: db}
}

const userCols = `id, email, password, full_name, phone, role, status, failed_login_attempts, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role, &u.Status,
		&u.FailedLoginAttempts, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM accounts_customuser WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find user by email", err)
	}
	return u, nil
}

// Create inserts a user. The unique index on email is the authority on
// duplicates; a violation is reported as domain.ErrDuplicateEmail.
func (r *userRepository) Create(ctx context.Context, nu *domain.NewUser) (*domain.User, error) {
	const q = `
		INSERT INTO accounts_customuser (email, password, full_name, phone, role, status, failed_login_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, q, nu.Email, nu.PasswordHash, nu.FullName, nu.Phone, nu.Role, nu.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, unavailable("create user", err)
	}
	return u, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE accounts_customuser SET last_login = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, q, id, at)
	if err != nil {
		return unavailable("update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update last login: user %d: %w", id, pgx.ErrNoRows)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
