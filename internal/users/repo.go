package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Repository is the identity store: login identities and their role grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ResetCredential(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	AssignRole(ctx context.Context, userID, organizationID uuid.UUID, role enums.Role) error
	HasRole(ctx context.Context, userID, organizationID uuid.UUID, role enums.Role) (bool, error)
	ListUserIDsByRole(ctx context.Context, organizationID uuid.UUID, role enums.Role) ([]uuid.UUID, error)
	ListGrants(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error)
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Create inserts a new user. E-mails are stored lower-cased so the unique
// index is case-insensitive in practice.
func (r *repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetCredential replaces the password hash and forces a change on next login.
func (r *repository) ResetCredential(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":        passwordHash,
			"must_change_password": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPassword stores a credential chosen by the user and clears the forced change.
func (r *repository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":        passwordHash,
			"must_change_password": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// AssignRole grants role idempotently. A concurrent grant of the same role is
// treated as success.
func (r *repository) AssignRole(ctx context.Context, userID, organizationID uuid.UUID, role enums.Role) error {
	exists, err := r.HasRole(ctx, userID, organizationID, role)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	grant := &models.UserRole{UserID: userID, OrganizationID: organizationID, Role: role}
	if err := r.DB(ctx).Create(grant).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}
	return nil
}

func (r *repository) HasRole(ctx context.Context, userID, organizationID uuid.UUID, role enums.Role) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND organization_id = ? AND role = ?", userID, organizationID, role).
		Count(&count).Error
	return count > 0, err
}

// ListUserIDsByRole resolves the current holders of role, skipping inactive identities.
func (r *repository) ListUserIDsByRole(ctx context.Context, organizationID uuid.UUID, role enums.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.UserRole{}).
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.organization_id = ? AND user_roles.role = ? AND users.is_active = ?", organizationID, role, true).
		Order("user_roles.created_at ASC").
		Pluck("user_roles.user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListGrants returns every role the user holds, oldest grant first.
func (r *repository) ListGrants(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	var grants []models.UserRole
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
