package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	contractshandler "github.com/loomworks/agencydesk/domains/contracts/be/handler"
	contractsrepo "github.com/loomworks/agencydesk/domains/contracts/be/repo"
	contractsservice "github.com/loomworks/agencydesk/domains/contracts/be/service"
	maintenancehandler "github.com/loomworks/agencydesk/domains/maintenance/be/handler"
	maintenanceservice "github.com/loomworks/agencydesk/domains/maintenance/be/service"
	portalhandler "github.com/loomworks/agencydesk/domains/portal/be/handler"
	portalservice "github.com/loomworks/agencydesk/domains/portal/be/service"
	tenantshandler "github.com/loomworks/agencydesk/domains/tenants/be/handler"
	tenantsprov "github.com/loomworks/agencydesk/domains/tenants/be/provisioning"
	tenantsrepo "github.com/loomworks/agencydesk/domains/tenants/be/repo"
	tenantsservice "github.com/loomworks/agencydesk/domains/tenants/be/service"
	usershandler "github.com/loomworks/agencydesk/domains/users/be/handler"
	usersrepo "github.com/loomworks/agencydesk/domains/users/be/repo"
	usersservice "github.com/loomworks/agencydesk/domains/users/be/service"
	verificationhandler "github.com/loomworks/agencydesk/domains/verification/be/handler"
	verificationservice "github.com/loomworks/agencydesk/domains/verification/be/service"
	"github.com/loomworks/agencydesk/platform/go/authz"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
	"github.com/loomworks/agencydesk/platform/go/metrics"
	platformmiddleware "github.com/loomworks/agencydesk/platform/go/middleware"
	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/ratelimit"
	tenantmw "github.com/loomworks/agencydesk/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | hmac | dev
	AuthHMACSecret  string        `env:"AUTH_HMAC_SECRET"`                    // required when AUTH_PROVIDER=hmac
	CleanupSecret   string        `env:"CLEANUP_SECRET,required"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"10m"`
	StorageBackend  string        `env:"STORAGE_BACKEND" envDefault:"none"`              // gcs | local | none
	StorageBucket   string        `env:"STORAGE_BUCKET"`                                 // required when STORAGE_BACKEND=gcs
	StorageLocalDir string        `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"` // used when STORAGE_BACKEND=local
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	// Every DDL statement is IF NOT EXISTS, so this is a no-op after the
	// first boot against a given database.
	if err := persistence.Bootstrap(ctx, pool); err != nil {
		logger.Fatal("apply platform ddl", zap.Error(err))
	}

	tenantStore, err := persistence.NewTenantStore(ctx, pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	userStore, err := persistence.NewUserStore(ctx, pool)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}
	sessionStore, err := persistence.NewPortalSessionStore(ctx, pool)
	if err != nil {
		logger.Fatal("init portal session store", zap.Error(err))
	}
	otpStore, err := persistence.NewOTPStore(ctx, pool, cfg.OTPTTL)
	if err != nil {
		logger.Fatal("init otp store", zap.Error(err))
	}
	rateLimitStore, err := persistence.NewRateLimitStore(ctx, pool)
	if err != nil {
		logger.Fatal("init rate limit store", zap.Error(err))
	}
	contractStore, err := persistence.NewContractStore(ctx, pool)
	if err != nil {
		logger.Fatal("init contract store", zap.Error(err))
	}
	cleanupStore, err := persistence.NewCleanupStore(ctx, pool)
	if err != nil {
		logger.Fatal("init cleanup store", zap.Error(err))
	}

	limiter := ratelimit.NewLimiter(rateLimitStore)

	var storageProv tenantsservice.StorageProvisioner
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			logger.Fatal("storage bucket required when STORAGE_BACKEND=gcs")
		}
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		defer gcsClient.Close()
		storageProv = tenantsprov.NewGCSStorageProvisioner(gcsClient, cfg.StorageBucket)
	case "local":
		if strings.TrimSpace(cfg.StorageLocalDir) == "" {
			logger.Fatal("storage local dir required when STORAGE_BACKEND=local")
		}
		storageProv = tenantsprov.NewLocalStorageProvisioner(cfg.StorageLocalDir)
	case "none":
		logger.Warn("branding asset storage disabled; tenant prefixes are not checked")
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs, local or none)", zap.String("backend", cfg.StorageBackend))
	}

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), storageProv)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	userService := usersservice.New(usersrepo.NewPostgresRepository(userStore))
	userHTTPHandler := usershandler.New(userService, logger)

	verificationService := verificationservice.New(otpStore, limiter, &verificationservice.LogSender{Logger: logger})
	verificationHTTPHandler := verificationhandler.New(verificationService, logger)

	portalService := portalservice.New(sessionStore, otpStore, contractStore, limiter, cfg.SessionTTL)
	portalHTTPHandler := portalhandler.New(portalService, logger)

	contractService := contractsservice.New(contractsrepo.NewPostgresRepository(contractStore))
	contractHTTPHandler := contractshandler.New(contractService, logger)

	maintenanceService := maintenanceservice.New(cleanupStore)
	maintenanceHTTPHandler := maintenancehandler.New(maintenanceService, cfg.CleanupSecret, logger)

	resolver := buildAuthResolver(ctx, cfg, logger)

	metrics.Init()

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(metrics.Instrument)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", metrics.Handler())

	rootRouter.Route("/internal", maintenanceHTTPHandler.Routes)

	apiRouter := chi.NewRouter()
	apiRouter.Use(resolver.Middleware)
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Public, tenant-resolved surface.
	apiRouter.Route("/public", func(r chi.Router) {
		r.Use(tenantmw.WithPublicTenant(tenantStore))
		tenantHTTPHandler.PublicRoutes(r)
		verificationHTTPHandler.Routes(r)
		portalHTTPHandler.PublicRoutes(r)
		contractHTTPHandler.PublicRoutes(r)
	})

	// Sign-out surfaces sit outside their gates: portal logout answers 200
	// for already-dead sessions, and global sign-out only expires the
	// browser session cookie.
	userHTTPHandler.SignOutRoute(apiRouter)
	portalHTTPHandler.LogoutRoute(apiRouter)
	apiRouter.Group(func(r chi.Router) {
		r.Use(tenantmw.RequirePortalClient(sessionStore, tenantStore))
		portalHTTPHandler.SessionRoutes(r)
	})

	// Platform user surface.
	apiRouter.Group(func(r chi.Router) {
		r.Use(tenantmw.RequirePlatformUser(userStore, tenantStore))

		userHTTPHandler.Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(authz.RequireFeature(authz.FeatureContracts))
			r.Group(func(r chi.Router) {
				r.Use(authz.RequirePermission(authz.PermViewContracts))
				contractHTTPHandler.ReadRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(authz.RequirePermission(authz.PermManageContracts))
				contractHTTPHandler.WriteRoutes(r)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authz.RequirePermission(authz.PermManageUsers))
				userHTTPHandler.AdminRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(authz.RequirePermission(authz.PermManageTenant))
				tenantHTTPHandler.AdminRoutes(r)
			})
		})
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
