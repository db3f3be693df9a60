package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aim840912/haode-api/internal/cache"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/metrics"
	"github.com/aim840912/haode-api/internal/services/auditlog"
	"github.com/aim840912/haode-api/internal/services/contents"
	"github.com/aim840912/haode-api/internal/services/images"
	"github.com/aim840912/haode-api/internal/services/inquiries"
	"github.com/aim840912/haode-api/internal/services/orders"
	"github.com/aim840912/haode-api/internal/services/products"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/internal/storage/memory"
	"github.com/aim840912/haode-api/internal/system"
	"github.com/aim840912/haode-api/pkg/logger"
	"github.com/aim840912/haode-api/supabase/client"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Products  storage.ProductStore
	Inquiries storage.InquiryStore
	Orders    storage.OrderStore
	Audit     storage.AuditStore
	Locations storage.LocationStore
	Culture   storage.CultureStore
	FarmTours storage.FarmTourStore
	Reviews   storage.ReviewStore
}

// Options carries the optional infrastructure the application can run
// without: Redis for the shared cache tier, Supabase for image storage
// and realtime invalidation.
type Options struct {
	Redis       *redis.Client
	Supabase    *client.Client
	ImageBucket string
	Realtime    *client.RealtimeClient
	Metrics     *metrics.Metrics
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager  *system.Manager
	log      *logger.Logger
	realtime *client.RealtimeClient

	Products  *products.Service
	Inquiries *inquiries.Service
	Orders    *orders.Service
	Audit     *auditlog.Service
	Contents  *contents.Service
	Images    *images.Service
	Cache     *cache.Cache
	Metrics   *metrics.Metrics
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Inquiries == nil {
		stores.Inquiries = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}
	if stores.Locations == nil {
		stores.Locations = mem
	}
	if stores.Culture == nil {
		stores.Culture = mem
	}
	if stores.FarmTours == nil {
		stores.FarmTours = mem
	}
	if stores.Reviews == nil {
		stores.Reviews = mem
	}

	app := &Application{
		manager:  system.NewManager(),
		log:      log,
		realtime: opts.Realtime,
		Metrics:  opts.Metrics,

		Products:  products.New(stores.Products, log),
		Inquiries: inquiries.New(stores.Inquiries, stores.Products, stores.FarmTours, log),
		Orders:    orders.New(stores.Orders, stores.Inquiries, log),
		Audit:     auditlog.New(stores.Audit, log),
		Contents:  contents.New(stores.Locations, stores.Culture, stores.FarmTours, stores.Reviews, stores.Products, log),
		Cache:     cache.New(opts.Redis, opts.Metrics, log),
	}

	if opts.Supabase != nil && opts.ImageBucket != "" {
		app.Images = images.New(opts.Supabase.Storage().From(opts.ImageBucket), log)
	} else {
		log.Warn("image storage not configured; image endpoints disabled")
	}

	return app, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services and, when configured, the
// realtime listener that drops cache entries for rows changed outside
// this process.
func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	if a.realtime != nil {
		if err := a.startRealtime(ctx); err != nil {
			a.log.WithError(err).Warnf("realtime cache invalidation disabled")
		}
	}
	return nil
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	if a.realtime != nil {
		_ = a.realtime.Disconnect()
	}
	return a.manager.Stop(ctx)
}

// cachedTables maps realtime table names to cache entities.
var cachedTables = map[string]string{
	"products":             "products",
	"locations":            "locations",
	"culture_items":        "culture",
	"farm_tour_activities": "farm-tour",
	"reviews":              "reviews",
}

func (a *Application) startRealtime(ctx context.Context) error {
	if err := a.realtime.Connect(ctx); err != nil {
		return err
	}
	for table, entity := range cachedTables {
		entity := entity
		_, err := a.realtime.SubscribeToPostgresChanges(ctx, client.PostgresChangesConfig{
			Table: table,
		}, func(event *client.RealtimeEvent) {
			if err := a.Cache.InvalidateEntity(context.Background(), entity); err != nil {
				a.log.WithError(err).WithField("entity", entity).Warnf("realtime invalidation failed")
			}
		})
		if err != nil {
			return err
		}
	}
	a.log.WithField("tables", len(cachedTables)).Info("realtime cache invalidation active")
	return nil
}

// WarmUpCache primes the hot read paths: active products, locations,
// farm-tour activities and culture items.
func (a *Application) WarmUpCache(ctx context.Context, ttl time.Duration) int {
	loaders := map[string]cache.Loader{
		// Same key the catalog handler reads for the default public
		// listing: no category, no search, active only.
		cache.ListKey("products", "", "", "true"): func(ctx context.Context) (any, error) {
			return a.Products.List(ctx, productActiveFilter())
		},
		cache.ListKey("locations", "all"): func(ctx context.Context) (any, error) {
			return a.Contents.ListLocations(ctx)
		},
		cache.ListKey("farm-tour", "all"): func(ctx context.Context) (any, error) {
			return a.Contents.ListActivities(ctx)
		},
		cache.ListKey("culture", "all"): func(ctx context.Context) (any, error) {
			return a.Contents.ListCultureItems(ctx)
		},
	}
	return a.Cache.WarmUp(ctx, loaders, ttl)
}

func productActiveFilter() product.Filter {
	return product.Filter{ActiveOnly: true}
}
