package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopfloor/gatekeeper/internal/database"
	"github.com/shopfloor/gatekeeper/internal/models"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{pool: db.Pool}
}

// FindByCode looks up a role by its stable code, such as "ADMIN".
// Returns models.ErrRoleNotFound for unknown codes.
func (r *RoleRepository) FindByCode(ctx context.Context, code string) (*models.Role, error) {
	query := `
		SELECT id, name, code, description, is_system, created_at, updated_at
		FROM roles WHERE code = $1
	`

	var role models.Role
	var description *string
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&role.ID, &role.Name, &role.Code, &description,
		&role.System, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if mapped == models.ErrNotFound {
			return nil, models.ErrRoleNotFound
		}
		return nil, mapped
	}

	if description != nil {
		role.Description = *description
	}

	return &role, nil
}
