package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopfloor/gatekeeper/internal/database"
	"github.com/shopfloor/gatekeeper/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
	db   *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool, db: db}
}

const userColumns = `id, username, email, password_hash, phone, avatar_url, status, last_login_at, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var phone, avatarURL *string
	var lastLoginAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&phone, &avatarURL, &user.Status, &lastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if phone != nil {
		user.Phone = *phone
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
	user.LastLoginAt = lastLoginAt

	return &user, nil
}

// GetByUsername loads a user together with its roles and the permissions
// each role grants. Returns models.ErrNotFound when no such user exists.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, err
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// loadRoles populates user.Roles with role rows and their permission sets.
func (r *UserRepository) loadRoles(ctx context.Context, user *models.User) error {
	query := `
		SELECT r.id, r.name, r.code, r.description, r.is_system, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.code
	`

	rows, err := r.pool.Query(ctx, query, user.ID)
	if err != nil {
		return fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var role models.Role
		var description *string
		if err := rows.Scan(&role.ID, &role.Name, &role.Code, &description,
			&role.System, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		if description != nil {
			role.Description = *description
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating roles: %w", err)
	}

	for i := range roles {
		if err := r.loadPermissions(ctx, &roles[i]); err != nil {
			return err
		}
	}

	user.Roles = roles
	return nil
}

func (r *UserRepository) loadPermissions(ctx context.Context, role *models.Role) error {
	query := `
		SELECT p.id, p.name, p.code, p.resource, p.action
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code
	`

	rows, err := r.pool.Query(ctx, query, role.ID)
	if err != nil {
		return fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]models.Permission, 0)
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Resource, &p.Action); err != nil {
			return fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating permissions: %w", err)
	}

	role.Permissions = perms
	return nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// Create inserts the user and its role links in one transaction. user.Roles
// must carry resolved role IDs. The unique constraints on username and
// email are the final arbiter against concurrent signups.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Status == "" {
		user.Status = models.StatusActive
	}

	var phone, avatarURL *string
	if user.Phone != "" {
		phone = &user.Phone
	}
	if user.AvatarURL != "" {
		avatarURL = &user.AvatarURL
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash, phone, avatar_url, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, user.ID, user.Username, user.Email, user.PasswordHash,
			phone, avatarURL, user.Status, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return database.MapPostgresError(err)
		}

		for _, role := range user.Roles {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
			`, user.ID, role.ID)
			if err != nil {
				return database.MapPostgresError(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateLastLogin stamps the successful sign-in time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for _, user := range users {
		if err := r.loadRoles(ctx, user); err != nil {
			return nil, err
		}
	}

	return users, nil
}
