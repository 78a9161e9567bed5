package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/grovetrace/api/controllers"
	"github.com/angelmondragon/grovetrace/api/middleware"
	"github.com/angelmondragon/grovetrace/internal/plantentry"
	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/pkg/config"
	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/logger"
	"github.com/angelmondragon/grovetrace/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient may be nil, in which case the
// idempotency middleware passes requests through.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	plantService plants.Service,
	plantEntryService plantentry.Service,
	itemReader controllers.ItemReader,
	stockLedger controllers.StockLedger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]db.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		deps["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Traceability.IdempotencyTTL, logg))

		r.Route("/plants", func(r chi.Router) {
			r.Post("/", controllers.PlantRegister(plantService, logg))
			r.Route("/{plantId}", func(r chi.Router) {
				r.Post("/submit", controllers.PlantSubmit(plantService, logg))
				r.Post("/schedule-harvest", controllers.PlantScheduleHarvest(plantService, logg))
				r.Post("/schedule-destruction", controllers.PlantScheduleDestruction(plantService, logg))
				r.Get("/details", controllers.PlantDetails(plantService, logg))
			})
		})

		r.Route("/plant-entries", func(r chi.Router) {
			r.Post("/", controllers.PlantEntryCreate(plantEntryService, logg))
			r.Route("/{entryId}", func(r chi.Router) {
				r.Get("/", controllers.PlantEntryGet(plantEntryService, logg))
				r.Post("/populate", controllers.PlantEntryPopulate(plantEntryService, logg))
				r.Post("/submit", controllers.PlantEntrySubmit(plantEntryService, logg))
				r.Post("/cancel", controllers.PlantEntryCancel(plantEntryService, logg))
			})
		})

		r.Route("/items/{itemCode}", func(r chi.Router) {
			r.Get("/", controllers.ItemGet(itemReader, stockLedger, logg))
			r.Post("/issue", controllers.ItemIssue(itemReader, stockLedger, logg))
		})
	})

	return r
}
