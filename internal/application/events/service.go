package events

import (
	"context"
	"encoding/json"

	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// FormattedEvent is the feed entry shape returned to clients.
type FormattedEvent struct {
	EventID   uuid.UUID              `json:"event_id"`
	VaultID   uuid.UUID              `json:"vault_id"`
	EventType string                 `json:"event_type"`
	ActorID   *string                `json:"actor_id"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt interface{}            `json:"created_at"`
}

// ListVaultEvents returns the audit feed for one vault, newest first.
func (s *Service) ListVaultEvents(ctx context.Context, vaultID uuid.UUID, limit int) ([]FormattedEvent, error) {
	var v models.Vault
	if err := s.DB.WithContext(ctx).Where("vault_id = ?", vaultID).First(&v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, vault.ErrVaultNotFound
		}
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.VaultEvent
	if err := s.DB.WithContext(ctx).
		Where("vault_id = ?", vaultID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]FormattedEvent, len(rows))
	for i, row := range rows {
		var data map[string]interface{}
		if len(row.EventData) > 0 {
			_ = json.Unmarshal(row.EventData, &data)
		}
		out[i] = FormattedEvent{
			EventID:   row.EventID,
			VaultID:   row.VaultID,
			EventType: row.EventType,
			ActorID:   row.ActorID,
			Data:      data,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}
