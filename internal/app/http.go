package app

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/studyforge-backend/internal/http"
	httpH "github.com/yungbote/studyforge-backend/internal/http/handlers"
	"github.com/yungbote/studyforge-backend/internal/observability"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Study    *httpH.StudyHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, sqlDB *sql.DB, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(pinger),
		Study:    httpH.NewStudyHandler(services.Orchestrator, services.Query),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	serviceName := ""
	if observability.TracingEnabled() {
		serviceName = cfg.ServiceName
	}
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		StudyHandler:    handlers.Study,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
