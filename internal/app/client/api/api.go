// Управляющее API агента синхронизации:
//GET    /api/v1/health                          # Состояние агента
//GET    /api/v1/sync/status                     # Снимок статуса
//POST   /api/v1/sync/force                      # Принудительный цикл
//GET    /api/v1/sync/conflicts                  # Конфликты для ручного решения
//POST   /api/v1/sync/conflicts/{id}/resolve     # Ручное решение
//GET    /api/v1/sync/failed                     # Неудачные изменения
//DELETE /api/v1/sync/failed/{id}                # Убрать неудачное
//GET    /api/v1/domains                         # Домены
//POST   /api/v1/domains/{domain}/changes        # Записать изменение
//GET    /api/v1/domains/{domain}/changes        # Очередь домена
//GET    /metrics                                # Prometheus

package api

import (
	changeAPI "fitsync/internal/app/client/api/http/change"
	healthAPI "fitsync/internal/app/client/api/http/health"
	"fitsync/internal/app/client/api/http/middleware"
	"fitsync/internal/app/client/api/http/middleware/logger"
	syncAPI "fitsync/internal/app/client/api/http/sync"
	"fitsync/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
)

// Deps зависимости управляющего API
type Deps struct {
	Engine   sync.Servicer
	Registry changeAPI.Registry
	DeviceID string
	// Metrics может быть nil, тогда /metrics не регистрируется
	Metrics *prometheus.Registry
}

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
	Change *changeAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("fitsync API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Change.SetupRoutes(API)

	if deps.Metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer(middleware.Device(deps.DeviceID))

	healthHandler := healthAPI.NewHandler(deps.Engine, deps.DeviceID, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(deps.Engine, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	changeHandler := changeAPI.NewHandler(deps.Registry, deps.DeviceID, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
		Change: changeHandler,
	}
}
