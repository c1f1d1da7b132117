package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/api"
	"github.com/endorhq/endor/internal/app"
	"github.com/endorhq/endor/internal/app/maintenance"
	iauth "github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/cache"
	"github.com/endorhq/endor/internal/database"
	"github.com/endorhq/endor/internal/middleware"
	"github.com/endorhq/endor/internal/monitoring"
	"github.com/endorhq/endor/internal/monitoring/checks"
	"github.com/endorhq/endor/internal/security"
	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/internal/vault"
	"github.com/endorhq/endor/pkg/logger"
	"github.com/endorhq/endor/pkg/mail"
)

const rateStoreDatabase = "database"

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Services api.Services
	Counters *cache.DatabaseStore
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime opens the database, resolves secrets, builds the services and the
// HTTP router, and starts the maintenance scheduler.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	generated, err := app.ResolveRuntimeSecrets(ctx, cfg, func(ctx context.Context, key, configured string, generate func() (string, error)) (string, bool, error) {
		return database.ResolveSecret(ctx, stack.DB, key, configured, generate)
	})
	if err != nil {
		return nil, err
	}
	for key := range generated {
		log.Info("generated runtime secret", zap.String("key", key))
	}
	logAudit(log, security.NewAuditService(cfg).Run())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	masterKey, err := app.DecodeKey(cfg.Vault.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("decode vault master key: %w", err)
	}
	cipher, err := vault.NewCipher(masterKey, vault.WithKDFParams(cfg.Vault.KDFParams()))
	if err != nil {
		return nil, fmt.Errorf("initialise vault cipher: %w", err)
	}

	gateway, err := store.New(stack.DB)
	if err != nil {
		return nil, err
	}

	var inviteOpts []services.InviteOption
	if cfg.Invites.Notify {
		mailer, err := mail.New(cfg.Email.SMTPSettings(), logger.WithModule("mail"))
		if err != nil {
			return nil, fmt.Errorf("initialise mailer: %w", err)
		}
		notifier, err := services.NewMailInviteNotifier(mailer, cfg.Email.SMTP.From, cfg.Invites.BaseURL)
		if err != nil {
			return nil, err
		}
		inviteOpts = append(inviteOpts, services.WithInviteNotifier(notifier, gateway, gateway))
	}

	registry := cfg.Integrations.Registry()
	log.Info("integrations configured", zap.Strings("providers", registry.Names()))

	stack.Services, err = api.BuildServices(gateway, cipher, registry, inviteOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Counters, err = cache.NewDatabaseStore(stack.DB)
	if err != nil {
		return nil, err
	}

	var rateStore middleware.RateStore = middleware.NewMemoryRateStore()
	if strings.EqualFold(strings.TrimSpace(cfg.Server.RateLimit.Store), rateStoreDatabase) {
		rateStore = stack.Counters
	}

	var probes []monitoring.Probe
	if cfg.Maintenance.Enabled {
		tracker := monitoring.NewJobTracker()
		probes = append(probes, checks.Maintenance(tracker, 0, nil))

		stack.Cleaner = maintenance.NewCleaner(stack.Services.Invites,
			maintenance.WithTracker(tracker),
			maintenance.WithProjectPurger(stack.Services.Projects, cfg.Maintenance.ProjectRetentionDays),
			maintenance.WithCounterPurger(stack.Counters),
			maintenance.WithSchedules(cfg.Maintenance.InviteSchedule, cfg.Maintenance.ProjectSchedule, cfg.Maintenance.RateCounterSchedule),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	db := stack.DB
	stack.Router, err = api.NewRouter(stack.Services, api.Options{
		JWT:            jwtSvc,
		Ping:           func(ctx context.Context) error { return database.Ping(ctx, db) },
		Probes:         probes,
		RateStore:      rateStore,
		AuthRateLimit:  cfg.Server.RateLimit.Requests,
		AuthRateWindow: cfg.Server.RateLimit.Window,
		MetricsPath:    cfg.Monitoring.MetricsPath(),
		HSTS:           cfg.Server.HSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func logAudit(log *zap.Logger, result security.Result) {
	for _, check := range result.Checks {
		fields := []zap.Field{zap.String("check", check.ID), zap.String("remediation", check.Remediation)}
		switch check.Status {
		case security.StatusFail:
			log.Error(check.Message, fields...)
		case security.StatusWarn:
			log.Warn(check.Message, fields...)
		}
	}
}

// Shutdown stops background jobs and releases the database.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		auth = cfg.Database.MySQL
	default:
		// unsupported drivers surface from database.Open
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
