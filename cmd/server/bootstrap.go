package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/api"
	"github.com/charlesng35/authcore/internal/app"
	"github.com/charlesng35/authcore/internal/app/maintenance"
	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/cache"
	"github.com/charlesng35/authcore/internal/database"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/monitoring/checks"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *cache.RedisStore
	Cache    cache.Store
	Codec    *iauth.TokenCodec
	Sessions *iauth.SessionManager
	Accounts *services.AccountService
	Cleaner  *maintenance.Cleaner
	Health   *monitoring.HealthManager
	Router   *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
			stack.Redis = nil
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Codec, err = iauth.NewTokenCodec(cfg.Auth.CodecConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token codec: %w", err)
	}

	refreshStore, err := iauth.NewGormRefreshTokenStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise refresh token store: %w", err)
	}
	stack.Sessions, err = iauth.NewSessionManager(refreshStore, stack.Codec, iauth.SessionConfig{
		Cache:    iauth.NewSessionCache(stack.Cache),
		CacheTTL: cfg.Cache.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session manager: %w", err)
	}

	verificationStore, err := services.NewGormVerificationTokenStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise verification store: %w", err)
	}
	verification, err := services.NewVerificationService(verificationStore, cfg.Auth.VerificationOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Accounts, err = buildAccountService(cfg, stack, verification, auditSvc)
	if err != nil {
		return nil, err
	}

	deps := maintenance.Deps{
		Sessions:     stack.Sessions,
		Verification: verification,
		Audit:        auditSvc,
	}
	if stack.Redis == nil {
		// Redis expires keys itself; only the table-backed cache needs purging.
		deps.Cache = dbStore
	}
	jobs := monitoring.NewJobTracker()
	stack.Cleaner = maintenance.NewCleaner(deps,
		maintenance.WithRecorder(jobs),
		maintenance.WithSessionSchedule(cfg.Maintenance.SessionSchedule),
		maintenance.WithVerificationSchedule(cfg.Maintenance.VerificationSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithAuditRetention(cfg.Maintenance.AuditRetention),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Health = buildHealthManager(cfg, stack, jobs)
	stack.Router, err = api.NewRouter(stack.DB, stack.Codec, stack.Accounts, cfg, api.WithHealthManager(stack.Health))
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func buildHealthManager(cfg *app.Config, stack *runtimeStack, jobs *monitoring.JobTracker) *monitoring.HealthManager {
	var redis checks.RedisPinger
	if stack.Redis != nil {
		redis = stack.Redis
	}

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(checks.Maintenance(jobs, 0))
	manager.RegisterReadiness(checks.Database(stack.DB, 0))
	manager.RegisterReadiness(checks.Redis(redis, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout))
	return manager
}

func buildAccountService(cfg *app.Config, stack *runtimeStack, verification *services.VerificationService, audit *services.AuditService) (*services.AccountService, error) {
	users, err := services.NewGormUserStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise user store: %w", err)
	}

	encoder := crypto.BcryptEncoder{}
	authn, err := services.NewLocalAuthenticator(users, encoder)
	if err != nil {
		return nil, fmt.Errorf("initialise authenticator: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	sender, err := services.NewMailCodeSender(mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise code sender: %w", err)
	}

	accounts, err := services.NewAccountService(services.AccountDeps{
		Users:         users,
		Roles:         users,
		Encoder:       encoder,
		Sender:        sender,
		Authenticator: authn,
		Sessions:      stack.Sessions,
		Codec:         stack.Codec,
		Verification:  verification,
		Cookie:        cfg.Auth.CookieConfig(),
		Audit:         audit,
		DB:            stack.DB,
	}, cfg.Auth.AccountConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}
	return accounts, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		// Wait for running jobs before the final sweep.
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(ctx, db, dbCfg.Driver, cfg.Auth.AccountConfig().DefaultRole); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	var conn app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		conn = cfg.Database.Postgres
	case "mysql":
		conn = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(conn.Host)
	dbCfg.Port = conn.Port
	dbCfg.Name = strings.TrimSpace(conn.Database)
	dbCfg.User = strings.TrimSpace(conn.Username)
	dbCfg.Password = strings.TrimSpace(conn.Password)
	if dbCfg.Driver == "postgres" {
		dbCfg.SSLMode = strings.TrimSpace(conn.SSLMode)
	}

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
