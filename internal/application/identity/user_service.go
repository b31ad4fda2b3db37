package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
)

// UserService handles user administration. Mutating operations are
// super-admin gated at the HTTP layer.
type UserService struct {
	userRepo   identity.UserRepository
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Email        string     `json:"email" binding:"required,email"`
	Name         string     `json:"name"`
	Password     string     `json:"password" binding:"required,min=8"`
	TenantID     *uuid.UUID `json:"tenant_id"`
	IsSuperAdmin bool       `json:"is_super_admin"`
}

// UpdateProfileRequest represents a request to update a user's profile
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// LinkTenantRequest represents a request to link a user to a tenant
type LinkTenantRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Status       string     `json:"status"`
	IsSuperAdmin bool       `json:"is_super_admin"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserListResponse is a paginated list of users
type UserListResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Create creates a new user, optionally linked to a tenant
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	}

	var user *identity.User
	if req.IsSuperAdmin {
		user, err = identity.NewSuperAdmin(req.Email, req.Name, req.Password)
	} else {
		user, err = identity.NewUser(req.Email, req.Name, req.Password)
	}
	if err != nil {
		return nil, err
	}

	if req.TenantID != nil {
		tenant, err := s.tenantRepo.FindByID(ctx, *req.TenantID)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Tenant not found")
		}
		if err := user.LinkToTenant(tenant.ID); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.Bool("is_super_admin", user.IsSuperAdmin))

	return toUserResponse(user), nil
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return shared.NewDomainError("NOT_FOUND", "User not found")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

// LinkToTenant attaches a user to a tenant
func (s *UserService) LinkToTenant(ctx context.Context, userID uuid.UUID, req LinkTenantRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Tenant not found")
	}

	if err := user.LinkToTenant(tenant.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	return toUserResponse(user), nil
}

// UpdateProfile updates a user's profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}

	if err := user.UpdateProfile(req.Name, req.Phone); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	return toUserResponse(user), nil
}

// Get returns a single user
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}
	return toUserResponse(user), nil
}

// ListForTenant returns users belonging to a tenant
func (s *UserService) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*UserListResponse, error) {
	page, err := s.userRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	users := make([]UserResponse, 0, len(page.Items))
	for _, u := range page.Items {
		users = append(users, *toUserResponse(u))
	}

	return &UserListResponse{
		Users:    users,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func toUserResponse(user *identity.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Phone:        user.Phone,
		Status:       string(user.Status),
		IsSuperAdmin: user.IsSuperAdmin,
		TenantID:     user.TenantID,
		LastLoginAt:  user.LastLoginAt,
		CreatedAt:    user.CreatedAt,
	}
}
