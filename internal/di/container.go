package di

import (
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/handler"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/metrics"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/service"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/ticketnumber"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/config"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/database"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/redis"
)

// Container holds all dependencies for the ticketing service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	TicketRepo   repository.TicketRepository
	ParentRepo   repository.ParentRepository
	EntryLogRepo repository.EntryLogRepository
	TicketWriter repository.TicketWriter

	// Ticket numbers
	Numbers *ticketnumber.Generator

	// Services
	IssuerService   service.IssuerService
	VerifierService service.VerifierService
	QueryService    service.TicketQueryService

	// Handlers
	HealthHandler *handler.HealthHandler
	TicketHandler *handler.TicketHandler
	EntryHandler  *handler.EntryHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *redis.Client
	Ticketing config.TicketingConfig
	Outbox    config.OutboxConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Initialize repositories
	pgTicketRepo := repository.NewPostgresTicketRepository(c.DB.Pool())
	c.TicketRepo = pgTicketRepo
	pgParentRepo := repository.NewPostgresParentRepository(c.DB.Pool())

	// Wrap with cache if Redis is available
	if c.Redis != nil {
		c.ParentRepo = repository.NewCachedParentRepository(pgParentRepo, c.Redis, cfg.Ticketing.ParentCacheTTL)
	} else {
		c.ParentRepo = pgParentRepo
	}
	c.EntryLogRepo = repository.NewPostgresEntryLogRepository(c.DB.Pool())
	c.TicketWriter = repository.NewTransactionalTicketRepository(c.DB.Pool())

	c.Numbers = ticketnumber.NewGenerator(ticketnumber.Config{
		Prefix:      cfg.Ticketing.NumberPrefix,
		MaxAttempts: cfg.Ticketing.NumberMaxAttempts,
		OnCollision: metrics.RecordNumberCollision,
		OnFallback:  metrics.RecordNumberFallback,
	}, pgTicketRepo)

	// Initialize services
	svcCfg := ServiceConfig(cfg.Ticketing, cfg.Outbox)
	c.IssuerService = service.NewIssuerService(c.TicketRepo, c.ParentRepo, c.TicketWriter, c.Numbers, svcCfg)
	c.VerifierService = service.NewVerifierService(c.TicketRepo, c.ParentRepo, c.TicketWriter, svcCfg)
	c.QueryService = service.NewTicketQueryService(c.TicketRepo, c.ParentRepo, c.EntryLogRepo, c.TicketWriter, svcCfg)

	// Initialize handlers. A nil *redis.Client must not reach the interface.
	if c.Redis != nil {
		c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	} else {
		c.HealthHandler = handler.NewHealthHandler(c.DB, nil)
	}
	c.TicketHandler = handler.NewTicketHandler(c.IssuerService, c.QueryService)
	c.EntryHandler = handler.NewEntryHandler(c.VerifierService, c.QueryService)

	return c
}

// ServiceConfig maps the ticketing and outbox settings onto service.Config
func ServiceConfig(t config.TicketingConfig, o config.OutboxConfig) *service.Config {
	return &service.Config{
		Location:             t.Location(),
		DateGraceDays:        t.DateGraceDays,
		ParentLookupAttempts: t.ParentLookupAttempts,
		PlaceholderTitle:     t.PlaceholderTitle,
		PlaceholderVenue:     t.PlaceholderVenue,
		Currency:             t.Currency,
		OutboxTopic:          o.Topic,
		QRSize:               t.QRSize,
		MaxTicketsPerBooking: t.MaxTicketsPerBooking,
	}
}
