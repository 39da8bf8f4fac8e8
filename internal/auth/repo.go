package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enerdash/enerdash/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	AccessibleSiteKeys(ctx context.Context, userID int64, siteType string) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, token_hash, is_active, created_at, updated_at FROM users WHERE email = $1`,
		email)
	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.TokenHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &user, nil
}

// AccessibleSiteKeys lists the "companyId_siteId" keys a user may see for
// one site type.
func (r *PGRepository) AccessibleSiteKeys(ctx context.Context, userID int64, siteType string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT site_key FROM user_site_grants WHERE user_id = $1 AND site_type = $2 ORDER BY site_key`,
		userID, siteType)
	if err != nil {
		return nil, fmt.Errorf("auth: list site grants: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("auth: scan site grant: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
