package vaults

import (
	"errors"

	authsvc "harbor-backend/internal/application/auth"
	vaultsvc "harbor-backend/internal/application/vaults"
	"harbor-backend/internal/middleware"
	"harbor-backend/internal/pkg/response"
	"harbor-backend/internal/vault"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for vault endpoints.
type Handlers struct {
	Service *vaultsvc.Service
}

// statusFor maps ledger errors onto HTTP status codes. Validation failures are
// 400, ownership failures 403, state-machine conflicts 409, balance and
// capacity failures 422, and the per-vault op lock 423.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vault.ErrVaultNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, vault.ErrInvalidArgument),
		errors.Is(err, vault.ErrZeroAddress),
		errors.Is(err, vault.ErrFeeOutOfRange),
		errors.Is(err, vault.ErrDustShares):
		return fiber.StatusBadRequest
	case errors.Is(err, vault.ErrInsufficientFunds),
		errors.Is(err, vault.ErrReserveViolation),
		errors.Is(err, vault.ErrObligatedFeeShortfall),
		errors.Is(err, vault.ErrCapacityExceeded):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, vault.ErrWindowOpen),
		errors.Is(err, vault.ErrWindowClosed),
		errors.Is(err, vault.ErrWindowNotIdle),
		errors.Is(err, vault.ErrInstrumentNotCleared),
		errors.Is(err, vault.ErrNoActivePosition),
		errors.Is(err, vault.ErrSettlementNotReady),
		errors.Is(err, vault.ErrPaused),
		errors.Is(err, vault.ErrPermanentlyClosed):
		return fiber.StatusConflict
	case errors.Is(err, vault.ErrOperationInProgress):
		return fiber.StatusLocked
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		return response.Error(c, "Internal Server Error", code, nil)
	}
	return response.Error(c, err.Error(), code, nil)
}

// getActor resolves the session user into a ledger actor.
func getActor(c *fiber.Ctx) (vaultsvc.Actor, error) {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		return vaultsvc.Actor{}, err
	}
	id, err := uuid.Parse(user.UserID)
	if err != nil {
		return vaultsvc.Actor{}, err
	}
	return vaultsvc.Actor{UserID: id, Role: user.Role}, nil
}

func vaultID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// CreateVault POST /api/v1/vaults
func (h *Handlers) CreateVault(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	var body vaultsvc.CreateVaultInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	v, err := h.Service.CreateVault(c.UserContext(), actor, body)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Vault created", fiber.Map{"vault": v}, nil)
}

// GetVault GET /api/v1/vaults/:id
func (h *Handlers) GetVault(c *fiber.Ctx) error {
	id, err := vaultID(c)
	if err != nil {
		return response.Error(c, "Invalid UUID format for vault id", fiber.StatusBadRequest, nil)
	}
	v, open, err := h.Service.GetVault(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Vault retrieved", fiber.Map{"vault": v, "window_open": open}, nil)
}

// ListVaults GET /api/v1/vaults — vaults managed by the session user.
func (h *Handlers) ListVaults(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	vaults, err := h.Service.ListVaults(c.UserContext(), actor.UserID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Vaults retrieved", fiber.Map{"vaults": vaults}, nil)
}

// GetBalance GET /api/v1/vaults/:id/balances/:account
func (h *Handlers) GetBalance(c *fiber.Ctx) error {
	id, err := vaultID(c)
	if err != nil {
		return response.Error(c, "Invalid UUID format for vault id", fiber.StatusBadRequest, nil)
	}
	account := c.Params("account")
	balance, err := h.Service.GetBalance(c.UserContext(), id, account)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Balance retrieved", fiber.Map{
		"account_id": account,
		"balance":    balance,
	}, nil)
}

// Deposit POST /api/v1/vaults/:id/deposit
func (h *Handlers) Deposit(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.DepositInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		res, err := h.Service.Deposit(c.UserContext(), id, actor, body)
		return res, "Deposit accepted", err
	})
}

// Withdraw POST /api/v1/vaults/:id/withdraw
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.WithdrawInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		res, err := h.Service.Withdraw(c.UserContext(), id, actor, body)
		return res, "Withdrawal accepted", err
	})
}

// Transfer POST /api/v1/vaults/:id/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.TransferInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		err := h.Service.TransferShares(c.UserContext(), id, actor, body)
		return fiber.Map{"from": body.From, "to": body.To, "shares": body.Shares}, "Shares transferred", err
	})
}

// Reactivate POST /api/v1/vaults/:id/window/reactivate
func (h *Handlers) Reactivate(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		expiry, err := h.Service.ReactivateWindow(c.UserContext(), id, actor)
		return fiber.Map{"window_expiry": expiry}, "Window reactivated", err
	})
}

// CommitCollateral POST /api/v1/vaults/:id/collateral/commit
func (h *Handlers) CommitCollateral(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.CommitInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		res, err := h.Service.CommitCollateral(c.UserContext(), id, actor, body)
		return res, "Collateral committed", err
	})
}

// BurnCollateral POST /api/v1/vaults/:id/collateral/burn
func (h *Handlers) BurnCollateral(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.BurnInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		res, err := h.Service.BurnCollateral(c.UserContext(), id, actor, body)
		return res, "Collateral burned", err
	})
}

// Settle POST /api/v1/vaults/:id/settle
func (h *Handlers) Settle(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		res, err := h.Service.Settle(c.UserContext(), id, actor)
		return res, "Position settled", err
	})
}

// Sell POST /api/v1/vaults/:id/sell
func (h *Handlers) Sell(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.SellInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		res, err := h.Service.SellOrder(c.UserContext(), id, actor, body)
		return res, "Order executed", err
	})
}

// SweepFees POST /api/v1/vaults/:id/fees/sweep
func (h *Handlers) SweepFees(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		paid, err := h.Service.SweepFees(c.UserContext(), id, actor)
		return fiber.Map{"swept": paid}, "Fees swept", err
	})
}

// UpdateFees PATCH /api/v1/vaults/:id/fees
func (h *Handlers) UpdateFees(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body vaultsvc.UpdateFeesInput
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		v, err := h.Service.UpdateFees(c.UserContext(), id, actor, body)
		return fiber.Map{"vault": v}, "Fees updated", err
	})
}

// UpdateCap PATCH /api/v1/vaults/:id/cap
func (h *Handlers) UpdateCap(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		var body struct {
			MaximumAssets string `json:"maximum_assets"`
		}
		if err := c.BodyParser(&body); err != nil {
			return nil, "", vault.ErrInvalidArgument
		}
		v, err := h.Service.UpdateCap(c.UserContext(), id, actor, body.MaximumAssets)
		return fiber.Map{"vault": v}, "Capacity updated", err
	})
}

// Pause POST /api/v1/vaults/:id/pause
func (h *Handlers) Pause(c *fiber.Ctx) error {
	return h.setPaused(c, true, "Vault paused")
}

// Unpause POST /api/v1/vaults/:id/unpause
func (h *Handlers) Unpause(c *fiber.Ctx) error {
	return h.setPaused(c, false, "Vault unpaused")
}

func (h *Handlers) setPaused(c *fiber.Ctx, paused bool, msg string) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		err := h.Service.SetPaused(c.UserContext(), id, actor, paused)
		return fiber.Map{"paused": paused}, msg, err
	})
}

// Close POST /api/v1/vaults/:id/close
func (h *Handlers) Close(c *fiber.Ctx) error {
	return h.ledgerOp(c, func(id uuid.UUID, actor vaultsvc.Actor) (interface{}, string, error) {
		err := h.Service.Close(c.UserContext(), id, actor)
		return fiber.Map{"closed": true}, "Vault closed", err
	})
}

// ledgerOp resolves the actor and vault id, runs op, and renders the result.
func (h *Handlers) ledgerOp(c *fiber.Ctx, op func(uuid.UUID, vaultsvc.Actor) (interface{}, string, error)) error {
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	id, err := vaultID(c)
	if err != nil {
		return response.Error(c, "Invalid UUID format for vault id", fiber.StatusBadRequest, nil)
	}
	data, msg, err := op(id, actor)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, msg, data, nil)
}
