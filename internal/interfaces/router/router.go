package router

import (
	distsvc "sukuk-backend/internal/application/distribution"
	pricesvc "sukuk-backend/internal/application/pricing"
	reconsvc "sukuk-backend/internal/application/reconcile"
	txsvc "sukuk-backend/internal/application/transactions"
	walletsvc "sukuk-backend/internal/application/wallets"
	"sukuk-backend/internal/config"
	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/infrastructure/database"
	assethandler "sukuk-backend/internal/interfaces/handlers/assets"
	authhandler "sukuk-backend/internal/interfaces/handlers/auth"
	healthhandler "sukuk-backend/internal/interfaces/handlers/health"
	pricehandler "sukuk-backend/internal/interfaces/handlers/pricing"
	tokenhandler "sukuk-backend/internal/interfaces/handlers/tokens"
	txhandler "sukuk-backend/internal/interfaces/handlers/transactions"
	wallethandler "sukuk-backend/internal/interfaces/handlers/wallets"
	"sukuk-backend/internal/ledger"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/notifications"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and routes.
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

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	healthHandlers := &healthhandler.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	authHandlers := &authhandler.Handlers{DB: db, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil || rdb == nil {
		return app, db, rdb, nil
	}

	var gateway ledger.Gateway
	if cfg.EthRPCURL != "" && cfg.TokenContractAddress != "" && cfg.OperatorPrivateKey != "" {
		node, err := ethclient.Dial(cfg.EthRPCURL)
		if err != nil {
			return nil, nil, nil, err
		}
		gateway, err = ledger.NewEthGateway(node, cfg.TokenContractAddress, cfg.OperatorPrivateKey, cfg.ChainID)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		log.Warn().Msg("token ledger not configured; chain routes disabled")
	}

	notifier := &notifications.Notifier{Rdb: rdb}

	walletService := &walletsvc.Service{DB: db}
	walletHandlers := &wallethandler.Handlers{Service: walletService}
	walletGroup := app.Group("/api/v1/wallets", middleware.RequireAuth())
	walletGroup.Post("/connect", walletHandlers.Connect)
	walletGroup.Get("/", walletHandlers.List)
	walletGroup.Delete("/:address", walletHandlers.Disconnect)
	walletGroup.Patch("/:address/primary", walletHandlers.SetPrimary)

	txService := &txsvc.Service{DB: db}
	txHandlers := &txhandler.Handlers{Service: txService, DB: db}
	app.Get("/api/v1/transactions", middleware.RequireAuth(), txHandlers.List)
	app.Get("/api/v1/notifications", middleware.RequireAuth(), txHandlers.Notifications)

	priceService := &pricesvc.Service{DB: db, Notifier: notifier}
	priceHandlers := &pricehandler.Handlers{Service: priceService}
	app.Post("/api/v1/assets/:id/price-update", middleware.RequireAuth(), priceHandlers.Request)
	app.Patch("/api/v1/price-updates/:id/review",
		middleware.RequireAuth(), middleware.RequireRole(domain.RoleRegulator), priceHandlers.Review)

	if gateway != nil {
		reconService := &reconsvc.Service{DB: db, Gateway: gateway, Notifier: notifier}
		distService := &distsvc.Service{DB: db, Notifier: notifier, ExcludeOwnerInventory: cfg.ExcludeOwnerFromDistribution}

		assetHandlers := &assethandler.Handlers{Reconcile: reconService, Distribution: distService}
		assetGroup := app.Group("/api/v1/assets", middleware.RequireAuth())
		assetGroup.Post("/:id/tokenize", assetHandlers.Tokenize)
		assetGroup.Post("/:id/issue", assetHandlers.Issue)
		assetGroup.Post("/:id/transfer", assetHandlers.Transfer)
		assetGroup.Post("/:id/distribute", assetHandlers.Distribute)
		assetGroup.Get("/:id/balance/:wallet", assetHandlers.Balance)

		tokenHandlers := &tokenhandler.Handlers{Reconcile: reconService}
		tokenGroup := app.Group("/api/v1/tokens", middleware.RequireAuth())
		tokenGroup.Post("/whitelist", middleware.RequireRole(domain.RoleRegulator), tokenHandlers.Whitelist)
		tokenGroup.Get("/partitions", tokenHandlers.Partitions)
	}

	return app, db, rdb, nil
}
