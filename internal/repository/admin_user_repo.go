package repository

import (
	"context"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AdminUserRepository struct {
	db DBTX
}

func NewAdminUserRepository(db DBTX) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func (r *AdminUserRepository) Create(ctx context.Context, admin *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, admin.Email, admin.PasswordHash, admin.Name).
		Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM admin_users
		WHERE email = $1
	`
	var admin models.AdminUser
	err := r.db.QueryRow(ctx, query, email).
		Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.Name, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminUserRepository) GetByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM admin_users
		WHERE id = $1
	`
	var admin models.AdminUser
	err := r.db.QueryRow(ctx, query, id).
		Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.Name, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
