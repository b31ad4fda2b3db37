package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	identityapp "github.com/zoravo/oms/internal/application/identity"
	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/interfaces/http/dto"
)

type userRig struct {
	users   *MockUserRepository
	tenants *MockTenantRepository
	engine  *gin.Engine
}

func newUserRig(tenantID uuid.UUID, superAdmin bool) *userRig {
	rig := &userRig{
		users:   new(MockUserRepository),
		tenants: new(MockTenantRepository),
	}

	svc := identityapp.NewUserService(rig.users, rig.tenants, zap.NewNop())
	h := NewUserHandler(svc)
	rig.engine = newTestEngine(uuid.New(), tenantID, superAdmin, h)
	return rig
}

func TestCreateUser(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	rig.users.On("ExistsByEmail", mock.Anything, "mechanic@garage1.in").Return(false, nil)
	rig.users.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.Email == "mechanic@garage1.in" && !u.IsSuperAdmin
	})).Return(nil)

	req := identityapp.CreateUserRequest{
		Email:    "mechanic@garage1.in",
		Name:     "Suresh",
		Password: "s3cret-password",
	}
	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/create", req, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "mechanic@garage1.in", data["email"])
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	rig.users.On("ExistsByEmail", mock.Anything, "taken@garage1.in").Return(true, nil)

	req := identityapp.CreateUserRequest{
		Email:    "taken@garage1.in",
		Password: "s3cret-password",
	}
	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/create", req, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, errorCode(t, w))
}

func TestCreateUserShortPassword(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	req := map[string]any{"email": "new@garage1.in", "password": "short"}
	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/create", req, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	rig.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserAdminEndpointsRequireSuperAdmin(t *testing.T) {
	rig := newUserRig(uuid.New(), false)

	paths := []string{
		"/api/v1/users/create",
		"/api/v1/users/delete",
		"/api/v1/users/link-to-tenant",
		"/api/v1/users/update-profile",
	}
	for _, path := range paths {
		w := performRequest(t, rig.engine, http.MethodPost, path, map[string]any{}, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "path %s", path)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w), "path %s", path)
	}
}

func TestDeleteUser(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	user, err := identity.NewUser("old@garage1.in", "Old", "s3cret-password")
	require.NoError(t, err)

	rig.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	rig.users.On("Delete", mock.Anything, user.ID).Return(nil)

	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/delete",
		DeleteUserRequest{UserID: user.ID}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["deleted"])
}

func TestDeleteUserNotFound(t *testing.T) {
	rig := newUserRig(uuid.New(), true)
	id := uuid.New()

	rig.users.On("FindByID", mock.Anything, id).Return(nil, nil)

	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/delete",
		DeleteUserRequest{UserID: id}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	rig.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestLinkUserToTenant(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	user, err := identity.NewUser("owner@garage1.in", "Owner", "s3cret-password")
	require.NoError(t, err)
	tenant, err := identity.NewTenant("GAR01", "Garage One")
	require.NoError(t, err)

	rig.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	rig.tenants.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	rig.users.On("Save", mock.Anything, user).Return(nil)

	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/link-to-tenant",
		LinkTenantBody{UserID: user.ID, TenantID: tenant.ID}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, tenant.ID.String(), data["tenant_id"])
}

func TestUpdateUserProfile(t *testing.T) {
	rig := newUserRig(uuid.New(), true)

	user, err := identity.NewUser("owner@garage1.in", "Owner", "s3cret-password")
	require.NoError(t, err)

	rig.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	rig.users.On("Save", mock.Anything, user).Return(nil)

	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/users/update-profile",
		UpdateProfileBody{UserID: user.ID, Name: "New Name", Phone: "9876543210"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "New Name", data["name"])
	assert.Equal(t, "9876543210", data["phone"])
}

func TestListUsersForTenant(t *testing.T) {
	tenantID := uuid.New()
	rig := newUserRig(tenantID, false)

	user, err := identity.NewUser("owner@garage1.in", "Owner", "s3cret-password")
	require.NoError(t, err)
	page := shared.NewPaginated([]*identity.User{user}, 1, 1, 20)

	rig.users.On("FindAllForTenant", mock.Anything, tenantID, mock.Anything).Return(&page, nil)

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/users", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["total"])
	users := body["data"].(map[string]any)["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "owner@garage1.in", users[0].(map[string]any)["email"])
}
