package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/absensi/internal/api/handlers"
	"github.com/your-org/absensi/internal/api/ws"
	"github.com/your-org/absensi/internal/auth"
	"github.com/your-org/absensi/internal/queue"
	"github.com/your-org/absensi/internal/storage"
)

type RouterConfig struct {
	APIKey      string
	PersonTable string
	DB          *storage.PostgresStore
	MinIO       *storage.MinIOStore
	Producer    *queue.Producer
	Hub         *ws.Hub
	Attendance  handlers.Attendance
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Recognition (no ledger write)
	recH := handlers.NewRecognizeHandler(cfg.Attendance)
	v1.POST("/recognize/file", recH.File)
	v1.POST("/recognize/url", recH.URL)

	// Attendance
	absensiH := handlers.NewAbsensiHandler(cfg.Attendance, cfg.DB, cfg.MinIO)
	v1.POST("/absensi/masuk", absensiH.Masuk)
	v1.POST("/absensi/pulang", absensiH.Pulang)
	v1.GET("/absensi", absensiH.List)
	v1.GET("/absensi/:personId/open", absensiH.Open)
	v1.GET("/snapshots/*key", absensiH.Snapshot)

	// Persons
	personH := handlers.NewPersonHandler(cfg.DB, cfg.PersonTable)
	v1.POST("/persons", personH.Create)
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.DELETE("/persons/:id", personH.Delete)

	return r
}
