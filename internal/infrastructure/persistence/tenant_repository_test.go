package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
)

func tenantColumns() []string {
	return []string{
		"id", "created_at", "updated_at", "version",
		"code", "name", "subdomain", "is_active", "subscription_status",
		"trial_ends_at", "subscription_ends_at", "contact_email", "contact_phone",
	}
}

func TestGormTenantRepository_FindByID(t *testing.T) {
	t.Run("finds existing tenant", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantRepository(gormDB)

		tenantID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE id = \$1`).
			WithArgs(tenantID, 1).
			WillReturnRows(sqlmock.NewRows(tenantColumns()).
				AddRow(tenantID, now, now, 1,
					"GARAGE1", "Garage One", "garage1", true, "active",
					nil, now.Add(90*24*time.Hour), "owner@garage1.in", ""))

		tenant, err := repo.FindByID(context.Background(), tenantID)

		require.NoError(t, err)
		require.NotNil(t, tenant)
		assert.Equal(t, "GARAGE1", tenant.Code)
		assert.Equal(t, identity.SubscriptionStatusActive, tenant.SubscriptionStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for missing tenant", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "tenants"`).
			WillReturnError(gorm.ErrRecordNotFound)

		tenant, err := repo.FindByID(context.Background(), uuid.New())

		assert.NoError(t, err)
		assert.Nil(t, tenant)
	})
}

func TestGormTenantRepository_FindBySubdomain(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormTenantRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE subdomain = \$1`).
		WithArgs("garage1", 1).
		WillReturnRows(sqlmock.NewRows(tenantColumns()).
			AddRow(uuid.New(), now, now, 1,
				"GARAGE1", "Garage One", "garage1", true, "trial",
				now.Add(14*24*time.Hour), nil, "", ""))

	tenant, err := repo.FindBySubdomain(context.Background(), "garage1")

	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, "garage1", tenant.Subdomain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTenantRepository_FindLapsed(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormTenantRepository(gormDB)

	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE is_active = \$1 AND .*trial_ends_at < \$3.*subscription_ends_at < \$5`).
		WithArgs(true,
			identity.SubscriptionStatusTrial, now,
			identity.SubscriptionStatusActive, now).
		WillReturnRows(sqlmock.NewRows(tenantColumns()).
			AddRow(uuid.New(), now, now, 1,
				"GARAGE2", "Garage Two", "garage2", true, "trial",
				now.Add(-24*time.Hour), nil, "", ""))

	tenants, err := repo.FindLapsed(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "GARAGE2", tenants[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTenantRepository_ExistsByCode(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormTenantRepository(gormDB)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tenants" WHERE code = \$1`).
		WithArgs("GARAGE1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "GARAGE1")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTenantRepository_Delete(t *testing.T) {
	t.Run("reports not found when no row matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantRepository(gormDB)

		mock.ExpectExec(`DELETE FROM "tenants"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), uuid.New())

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})
}
