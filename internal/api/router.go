package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/presence/internal/api/handlers"
	"github.com/your-org/presence/internal/api/ws"
	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/auth"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/queue"
	"github.com/your-org/presence/internal/storage"
)

type RouterConfig struct {
	APIKey        string
	Issuer        *auth.Issuer
	DB            *storage.PostgresStore
	MinIO         *storage.MinIOStore
	Producer      *queue.Producer
	Hub           *ws.Hub
	Resolver      *match.Resolver
	Recorder      *attendance.Recorder
	Location      *time.Location
	DescriptorDim int
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

	// API v1 (session or API key)
	v1 := r.Group("/v1")
	v1.Use(auth.SessionMiddleware(cfg.Issuer, cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	admin := v1.Group("")
	admin.Use(auth.RequireRole(auth.RoleAdmin))

	// Session tokens
	tokenH := handlers.NewTokenHandler(cfg.Issuer)
	admin.POST("/auth/token", tokenH.Issue)

	// Identities
	identityH := handlers.NewIdentityHandler(cfg.DB, cfg.Resolver, cfg.DescriptorDim)
	admin.POST("/identities", identityH.Register)
	admin.GET("/identities", identityH.List)
	v1.GET("/identities/:id", identityH.Get)

	// Recognition
	recognizeH := handlers.NewRecognizeHandler(cfg.DB, cfg.Resolver, cfg.Recorder, cfg.Hub, cfg.Location, cfg.DescriptorDim)
	v1.POST("/recognize", recognizeH.Recognize)

	captureH := handlers.NewCaptureHandler(cfg.MinIO, cfg.Producer, cfg.Location, cfg.DescriptorDim)
	v1.POST("/captures", captureH.Submit)

	// Attendance
	attendanceH := handlers.NewAttendanceHandler(cfg.DB, cfg.Recorder, cfg.MinIO, cfg.Location)
	admin.POST("/attendance", attendanceH.Mark)
	v1.GET("/attendance", attendanceH.List)
	v1.GET("/attendance/:id/snapshot", attendanceH.Snapshot)
	v1.GET("/stats/daily", attendanceH.DailyStats)

	return r
}
