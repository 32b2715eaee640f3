// internal/services/user_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Phone     string `json:"phone" validate:"omitempty,phone,max=15"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(map[string]interface{}{
			"first_name": strings.TrimSpace(req.FirstName),
			"last_name":  strings.TrimSpace(req.LastName),
		}).Error; err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}

		profile := &models.UserProfile{UserID: user.ID, Phone: strings.TrimSpace(req.Phone)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"phone", "updated_at"}),
		}).Create(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return NewFieldError("current_password", "Current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).UpdateColumn("password_hash", user.PasswordHash).Error
}

// LikedProducts lists the active products a user has liked.
func (s *UserService) LikedProducts(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Joins("JOIN product_likes ON product_likes.product_id = products.id").
		Where("product_likes.user_id = ? AND products.is_active = ?", userID, true).
		Order("products.name").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load liked products: %w", err)
	}
	return products, nil
}

// Admin

func (s *UserService) ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if params.Search != "" {
		like := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		query = query.Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = utils.ApplyPagination(utils.ApplySort(query, params, []string{"created_at", "username", "email", "last_login_at"}), params)

	var users []models.User
	if err := query.Preload("Profile").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus) error {
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return NewFieldError("status", "Invalid status")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("user")
	}
	return nil
}
