package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
)

type userServiceFixture struct {
	userRepo   *MockUserRepository
	tenantRepo *MockTenantRepository
	service    *UserService
}

func newUserServiceFixture() *userServiceFixture {
	userRepo := new(MockUserRepository)
	tenantRepo := new(MockTenantRepository)
	return &userServiceFixture{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		service:    NewUserService(userRepo, tenantRepo, zap.NewNop()),
	}
}

func TestUserService_Create(t *testing.T) {
	f := newUserServiceFixture()
	f.userRepo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
	f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.Email == "new@example.com" && !u.IsSuperAdmin && u.TenantID == nil
	})).Return(nil)

	resp, err := f.service.Create(context.Background(), CreateUserRequest{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "passw0rd123",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.Email)
	assert.Equal(t, "active", resp.Status)
	assert.False(t, resp.IsSuperAdmin)
	f.userRepo.AssertExpectations(t)
}

func TestUserService_Create_LinkedToTenant(t *testing.T) {
	f := newUserServiceFixture()
	tenant := activeTenant(t)

	f.userRepo.On("ExistsByEmail", mock.Anything, "staff@example.com").Return(false, nil)
	f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.TenantID != nil && *u.TenantID == tenant.ID
	})).Return(nil)

	resp, err := f.service.Create(context.Background(), CreateUserRequest{
		Email:    "staff@example.com",
		Password: "passw0rd123",
		TenantID: &tenant.ID,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.TenantID)
	assert.Equal(t, tenant.ID, *resp.TenantID)
}

func TestUserService_Create_SuperAdmin(t *testing.T) {
	f := newUserServiceFixture()
	f.userRepo.On("ExistsByEmail", mock.Anything, "root@example.com").Return(false, nil)
	f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.IsSuperAdmin
	})).Return(nil)

	resp, err := f.service.Create(context.Background(), CreateUserRequest{
		Email:        "root@example.com",
		Password:     "passw0rd123",
		IsSuperAdmin: true,
	})

	require.NoError(t, err)
	assert.True(t, resp.IsSuperAdmin)
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	f := newUserServiceFixture()
	f.userRepo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

	_, err := f.service.Create(context.Background(), CreateUserRequest{
		Email:    "taken@example.com",
		Password: "passw0rd123",
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	f.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Create_UnknownTenant(t *testing.T) {
	f := newUserServiceFixture()
	tenantID := uuid.New()
	f.userRepo.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
	f.tenantRepo.On("FindByID", mock.Anything, tenantID).Return(nil, nil)

	_, err := f.service.Create(context.Background(), CreateUserRequest{
		Email:    "staff@example.com",
		Password: "passw0rd123",
		TenantID: &tenantID,
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUserService_Delete(t *testing.T) {
	f := newUserServiceFixture()
	user, err := identity.NewUser("gone@example.com", "Gone", "passw0rd123")
	require.NoError(t, err)

	f.userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.userRepo.On("Delete", mock.Anything, user.ID).Return(nil)

	require.NoError(t, f.service.Delete(context.Background(), user.ID))
	f.userRepo.AssertExpectations(t)
}

func TestUserService_Delete_NotFound(t *testing.T) {
	f := newUserServiceFixture()
	f.userRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	err := f.service.Delete(context.Background(), uuid.New())

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUserService_LinkToTenant(t *testing.T) {
	f := newUserServiceFixture()
	tenant := activeTenant(t)
	user, err := identity.NewUser("free@example.com", "Free", "passw0rd123")
	require.NoError(t, err)

	f.userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	f.userRepo.On("Save", mock.Anything, user).Return(nil)

	resp, err := f.service.LinkToTenant(context.Background(), user.ID, LinkTenantRequest{TenantID: tenant.ID})

	require.NoError(t, err)
	require.NotNil(t, resp.TenantID)
	assert.Equal(t, tenant.ID, *resp.TenantID)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserServiceFixture()
	user, err := identity.NewUser("edit@example.com", "Before", "passw0rd123")
	require.NoError(t, err)

	f.userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.userRepo.On("Save", mock.Anything, user).Return(nil)

	resp, err := f.service.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		Name:  "After",
		Phone: "+919876543210",
	})

	require.NoError(t, err)
	assert.Equal(t, "After", resp.Name)
	assert.Equal(t, "+919876543210", resp.Phone)
}

func TestUserService_ListForTenant(t *testing.T) {
	f := newUserServiceFixture()
	tenant := activeTenant(t)
	user := tenantUser(t, tenant.ID)

	page := shared.NewPaginated([]*identity.User{user}, 1, 1, 20)
	f.userRepo.On("FindAllForTenant", mock.Anything, tenant.ID, mock.Anything).Return(&page, nil)

	resp, err := f.service.ListForTenant(context.Background(), tenant.ID, shared.DefaultFilter())

	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, user.Email, resp.Users[0].Email)
	assert.Equal(t, int64(1), resp.Total)
}
