package events

import (
	"context"
	"testing"
	"time"

	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupEventsTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Vault{}, &models.VaultEvent{}))

	v := &models.Vault{
		Name: "Harbor ETH Covered Call", Symbol: "hETHc",
		ManagerID: uuid.New(), AssetDenom: "weth",
		MaximumAssets: "1000", WindowLengthSecs: 100,
		TotalSupply: "0", AssetBalance: "0", ObligatedFees: "0",
		CurrentReserves: "0", CollateralAmount: "0", InstrumentBalance: "0",
	}
	require.NoError(t, db.Create(v).Error)
	return &Service{DB: db}, v.VaultID
}

func TestListVaultEvents_UnknownVault(t *testing.T) {
	svc, _ := setupEventsTest(t)
	_, err := svc.ListVaultEvents(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)
}

func TestListVaultEvents_NewestFirst(t *testing.T) {
	svc, vaultID := setupEventsTest(t)
	actor := uuid.NewString()

	base := time.Now().Add(-time.Hour)
	for i, eventType := range []string{models.EventDeposit, models.EventWithdraw, models.EventFeesSwept} {
		require.NoError(t, svc.DB.Create(&models.VaultEvent{
			VaultID:   vaultID,
			EventType: eventType,
			ActorID:   &actor,
			EventData: datatypes.JSON([]byte(`{"amount":"100"}`)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	feed, err := svc.ListVaultEvents(context.Background(), vaultID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, models.EventFeesSwept, feed[0].EventType)
	assert.Equal(t, models.EventDeposit, feed[2].EventType)
	assert.Equal(t, "100", feed[0].Data["amount"])
	require.NotNil(t, feed[0].ActorID)
	assert.Equal(t, actor, *feed[0].ActorID)
}

func TestListVaultEvents_LimitDefaults(t *testing.T) {
	svc, vaultID := setupEventsTest(t)
	for i := 0; i < 60; i++ {
		require.NoError(t, svc.DB.Create(&models.VaultEvent{
			VaultID:   vaultID,
			EventType: models.EventDeposit,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}).Error)
	}

	// Zero and out-of-range limits fall back to 50.
	feed, err := svc.ListVaultEvents(context.Background(), vaultID, 0)
	require.NoError(t, err)
	assert.Len(t, feed, 50)

	feed, err = svc.ListVaultEvents(context.Background(), vaultID, 201)
	require.NoError(t, err)
	assert.Len(t, feed, 50)

	feed, err = svc.ListVaultEvents(context.Background(), vaultID, 5)
	require.NoError(t, err)
	assert.Len(t, feed, 5)
}
