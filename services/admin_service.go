package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"gorm.io/gorm"
)

// AdminInput pre-registers an admin by e-mail. The Auth0 identity is linked
// on the admin's first login.
type AdminInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     string `json:"role" validate:"omitempty,oneof=super_admin sub_admin"`
}

// AdminService manages dashboard operators
type AdminService struct {
	db       *gorm.DB
	userInfo UserInfoFetcher
}

// NewAdminService creates an admin service. userInfo is used to link first
// logins and may be nil.
func NewAdminService(db *gorm.DB, userInfo UserInfoFetcher) *AdminService {
	return &AdminService{db: db, userInfo: userInfo}
}

// Resolve returns the admin linked to an Auth0 subject. An unlinked subject
// is matched by its verified e-mail through /userinfo and linked to the
// pre-created admin.
func (s *AdminService) Resolve(ctx context.Context, subject, accessToken string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("auth0_id = ?", subject).First(&admin).Error
	if err == nil {
		return &admin, nil
	}
	if !IsRecordNotFound(err) {
		return nil, remote("load admin", err)
	}
	if s.userInfo == nil {
		return nil, notFound("ADMIN_NOT_FOUND", "no admin is linked to this account")
	}

	info, err := s.userInfo.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, remote("fetch user info", err)
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return nil, notFound("ADMIN_NOT_FOUND", "no admin is linked to this account")
	}
	// An unverified address proves nothing about who owns the mailbox.
	if !info.EmailVerified {
		slog.Warn("refused to link admin with unverified e-mail", slog.String("subject", subject), slog.String("email", email))
		return nil, notFound("EMAIL_NOT_VERIFIED", "verify %s before signing in to the dashboard", email)
	}

	res := s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("LOWER(email) = ? AND auth0_id IS NULL", email).
		Update("auth0_id", subject)
	if res.Error != nil {
		return nil, remote("link admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("ADMIN_NOT_FOUND", "%s is not registered as an admin", email)
	}
	if err := s.db.WithContext(ctx).Where("auth0_id = ?", subject).First(&admin).Error; err != nil {
		return nil, remote("load admin", err)
	}
	slog.Info("linked admin to auth0 identity", slog.String("admin_id", admin.ID.String()), slog.String("email", admin.Email))
	return &admin, nil
}

// List returns all admins, super admins first
func (s *AdminService) List(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	if err := s.db.WithContext(ctx).Order("role desc").Order("full_name asc").Find(&admins).Error; err != nil {
		return nil, remote("list admins", err)
	}
	return admins, nil
}

// Create pre-registers an admin
func (s *AdminService) Create(ctx context.Context, input AdminInput) (*models.Admin, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = models.RoleSubAdmin
	}
	admin := models.Admin{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		FullName: strings.TrimSpace(input.FullName),
		Role:     role,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, conflict("ADMIN_EXISTS", "an admin with e-mail %s already exists", admin.Email)
		}
		return nil, remote("create admin", err)
	}
	return &admin, nil
}

// Delete removes an admin. Admins cannot delete themselves.
func (s *AdminService) Delete(ctx context.Context, actor *models.Admin, id uuid.UUID) error {
	if actor != nil && actor.ID == id {
		return invalid("CANNOT_DELETE_SELF", "you cannot delete your own admin account")
	}
	res := s.db.WithContext(ctx).Delete(&models.Admin{}, "id = ?", id)
	if res.Error != nil {
		return remote("delete admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("ADMIN_NOT_FOUND", "admin %s not found", id)
	}
	return nil
}
