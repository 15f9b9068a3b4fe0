package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/storage"
)

// Container holds the wired dependency graph shared by the API server and the CLI.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
	Users      repository.UserRepository
	Issues     repository.IssueRepository
	Proofs     storage.ProofStore

	Auth          *service.AuthService
	Ledger        *service.ScoreLedger
	IssueService  *service.IssueService
	Escalation    *service.EscalationService
	Analytics     *service.AnalyticsService
	Notifications *service.NotificationService
}

// New connects the backing stores and builds every service. Without POSTGRES_DSN the
// repositories are in-memory; without a reachable Redis the locks are process-local.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.Pool, persistence.Migrations(), logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Postgres:   pg,
		Redis:      rdb,
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(),
	}

	if pg.Enabled() {
		c.Users = repository.NewUserRepository(pg.Pool)
		c.Issues = repository.NewIssueRepository(pg.Pool)
	} else {
		c.Users = memory.NewUserStore()
		c.Issues = memory.NewIssueStore()
	}

	var locker lock.Locker = lock.NewLocalLocker()
	var publisher service.ChannelPublisher
	if rdb.Enabled() {
		locker = lock.NewRedisLocker(rdb.Client, "grievance:lock:", cfg.Escalation.LockTTL())
		publisher = rdb.Client
	}

	if cfg.Storage.Endpoint != "" {
		proofs, err := storage.NewMinioProofStore(ctx, cfg.Storage, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect object store: %w", err)
		}
		c.Proofs = proofs
	} else {
		logger.Warn("MINIO_ENDPOINT not provided; keeping resolution proofs in memory")
		c.Proofs = storage.NewMemoryProofStore()
	}

	c.Auth = service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: c.Users, Logger: logger})
	c.Ledger = service.NewScoreLedger(service.ScoreLedgerDependencies{
		UserRepo:   c.Users,
		Locker:     locker,
		Dispatcher: c.Dispatcher,
		Logger:     logger,
	})
	c.IssueService = service.NewIssueService(service.IssueDependencies{
		IssueRepo:  c.Issues,
		UserRepo:   c.Users,
		Ledger:     c.Ledger,
		Locker:     locker,
		Dispatcher: c.Dispatcher,
		Logger:     logger,
	})
	c.Escalation = service.NewEscalationService(service.EscalationDependencies{
		IssueService: c.IssueService,
		GraceWindow:  cfg.Escalation.GraceWindow(),
		Metrics:      c.Metrics,
		Logger:       logger,
	})
	c.Analytics = service.NewAnalyticsService(c.Issues, c.Users)
	c.Notifications = service.NewNotificationService(c.Dispatcher, publisher, logger, cfg.Notification)

	return c, nil
}

// SeedAdmin creates the configured admin account when a password is set and no admin exists.
func (c *Container) SeedAdmin(ctx context.Context) error {
	if c.Config.Auth.SeedAdminPassword == "" {
		return nil
	}
	_, _, err := c.Auth.SeedAdmin(ctx, c.Config.Auth.SeedAdminEmail, c.Config.Auth.SeedAdminPassword)
	return err
}

// Close releases connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}
