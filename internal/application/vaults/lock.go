package vaults

import (
	"context"
	"time"

	"harbor-backend/internal/vault"

	"github.com/google/uuid"
)

const opLockPrefix = "vault_op:"

// opLockTTL bounds lock lifetime if a process dies mid-operation.
const opLockTTL = 30 * time.Second

// withOpLock serializes mutating operations per vault: a second invocation
// while one is in flight is rejected outright, the caller resubmits. With no
// Redis configured (unit tests of pure flows) operations run unlocked.
func (s *Service) withOpLock(ctx context.Context, vaultID uuid.UUID, fn func() error) error {
	if s.Rdb == nil {
		return fn()
	}
	key := opLockPrefix + vaultID.String()
	ok, err := s.Rdb.SetNX(ctx, key, "1", opLockTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return vault.ErrOperationInProgress
	}
	defer s.Rdb.Del(context.Background(), key)
	return fn()
}
