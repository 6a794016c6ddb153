package router

import (
	"net/http"

	authsvc "harbor-backend/internal/application/auth"
	eventsvc "harbor-backend/internal/application/events"
	healthsvc "harbor-backend/internal/application/health"
	usersvc "harbor-backend/internal/application/users"
	vaultsvc "harbor-backend/internal/application/vaults"
	"harbor-backend/internal/config"
	"harbor-backend/internal/constants"
	"harbor-backend/internal/gateway"
	"harbor-backend/internal/infrastructure/database"
	authhandler "harbor-backend/internal/interfaces/handlers/auth"
	eventhandler "harbor-backend/internal/interfaces/handlers/events"
	healthhandler "harbor-backend/internal/interfaces/handlers/health"
	userhandler "harbor-backend/internal/interfaces/handlers/users"
	vaulthandler "harbor-backend/internal/interfaces/handlers/vaults"
	"harbor-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// buildGateways wires HTTP clients for every collaborator with a configured
// URL and falls back to the in-memory implementation otherwise, so a dev
// instance runs without any external service.
func buildGateways(cfg *config.Config) (gateway.FeeRegistry, gateway.AssetCustody, gateway.PositionController, gateway.AddressBook, gateway.SwapGateway) {
	var registry gateway.FeeRegistry
	if cfg.FeeRegistryURL != "" {
		registry = &gateway.HTTPFeeRegistry{BaseURL: cfg.FeeRegistryURL, APIKey: cfg.FeeRegistryAPIKey}
	} else {
		registry = &gateway.StaticFeeRegistry{Fees: gateway.ProtocolFees{
			DepositFeeBps:     cfg.ProtocolDepositFeeBps,
			WithdrawalFeeBps:  cfg.ProtocolWithdrawalFeeBps,
			PerformanceFeeBps: cfg.ProtocolPerformanceFeeBps,
			PayoutAccount:     cfg.ProtocolPayoutAccount,
		}}
	}

	var custody gateway.AssetCustody
	if cfg.CustodyURL != "" {
		custody = &gateway.HTTPAssetCustody{BaseURL: cfg.CustodyURL, APIKey: cfg.CustodyAPIKey}
	} else {
		custody = gateway.NewMemoryCustody()
	}

	var controller gateway.PositionController
	if cfg.ControllerURL != "" {
		controller = &gateway.HTTPPositionController{BaseURL: cfg.ControllerURL, APIKey: cfg.ControllerAPIKey}
	} else {
		controller = gateway.NewMemoryController()
	}

	var book gateway.AddressBook
	if cfg.AddressBookURL != "" {
		book = &gateway.HTTPAddressBook{BaseURL: cfg.AddressBookURL, APIKey: cfg.AddressBookAPIKey}
	} else {
		book = &gateway.StaticAddressBook{
			ControllerAccount: cfg.ControllerAccount,
			MarginPoolAccount: cfg.MarginPoolAccount,
		}
	}

	var swap gateway.SwapGateway
	if cfg.SwapURL != "" {
		swap = &gateway.HTTPSwapGateway{BaseURL: cfg.SwapURL, APIKey: cfg.SwapAPIKey}
	} else {
		mem := &gateway.MemorySwap{}
		if mc, ok := custody.(*gateway.MemoryCustody); ok {
			mem.Custody = mc
		}
		swap = mem
	}

	return registry, custody, controller, book, swap
}

// CreateApp builds the Fiber application with all middleware and routes.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionHandler, redisClient, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redisClient
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb: rdb,
		Gateways: []healthsvc.GatewayPing{
			{Name: "fee-registry", URL: cfg.FeeRegistryURL},
			{Name: "custody", URL: cfg.CustodyURL},
			{Name: "controller", URL: cfg.ControllerURL},
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if errDB = database.AutoMigrate(db); errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db != nil && rdb != nil {
		registry, custody, controller, book, swap := buildGateways(cfg)

		us := &usersvc.Service{DB: db}
		uh := &userhandler.Handlers{Service: us}
		ug := app.Group("/api/v1/users", middleware.RequireAuth())
		ug.Post("/", middleware.AuthorizePermission(constants.ManageUsers), uh.CreateUser)

		vs := &vaultsvc.Service{
			DB:          db,
			Rdb:         rdb,
			FeeRegistry: registry,
			Custody:     custody,
			Controller:  controller,
			AddressBook: book,
			Swap:        swap,
		}
		vh := &vaulthandler.Handlers{Service: vs}
		vg := app.Group("/api/v1/vaults", middleware.RequireAuth())
		vg.Post("/", middleware.AuthorizePermission(constants.CreateVault), vh.CreateVault)
		vg.Get("/", middleware.AuthorizePermission(constants.ViewData), vh.ListVaults)
		vg.Get("/:id", middleware.AuthorizePermission(constants.ViewData), vh.GetVault)
		vg.Get("/:id/balances/:account", middleware.AuthorizePermission(constants.ViewData), vh.GetBalance)

		vg.Post("/:id/deposit", middleware.AuthorizePermission(constants.Deposit), vh.Deposit)
		vg.Post("/:id/withdraw", middleware.AuthorizePermission(constants.Withdraw), vh.Withdraw)
		vg.Post("/:id/transfer", middleware.AuthorizePermission(constants.TransferShares), vh.Transfer)

		vg.Post("/:id/window/reactivate", middleware.AuthorizePermission(constants.ManagePosition), vh.Reactivate)
		vg.Post("/:id/collateral/commit", middleware.AuthorizePermission(constants.ManagePosition), vh.CommitCollateral)
		vg.Post("/:id/collateral/burn", middleware.AuthorizePermission(constants.ManagePosition), vh.BurnCollateral)
		vg.Post("/:id/settle", middleware.AuthorizePermission(constants.ManagePosition), vh.Settle)
		vg.Post("/:id/sell", middleware.AuthorizePermission(constants.ManagePosition), vh.Sell)

		vg.Patch("/:id/fees", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.UpdateFees)
		vg.Patch("/:id/cap", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.UpdateCap)
		vg.Post("/:id/fees/sweep", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.SweepFees)
		vg.Post("/:id/pause", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.Pause)
		vg.Post("/:id/unpause", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.Unpause)
		vg.Post("/:id/close", middleware.AuthorizePermission(constants.ManageVaultAdmin), vh.Close)

		es := &eventsvc.Service{DB: db}
		eh := &eventhandler.Handlers{Service: es}
		vg.Get("/:id/events", middleware.AuthorizePermission(constants.ViewData), eh.ListVaultEvents)
	}

	return app, db, rdb, nil
}

// Handler adapts the Fiber app to net/http.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
