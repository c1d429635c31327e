package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/config"
	"github.com/stocktribe/stocktribe/controllers"
	"github.com/stocktribe/stocktribe/middleware"
	"github.com/stocktribe/stocktribe/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.CronHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	store := utils.NewLeaderboardStore(cfg.DataDir)
	hub := utils.NewSSEHub()
	stocks := utils.NewStockClient()

	authController := controllers.NewAuthController(db)
	predictionController := controllers.NewPredictionController(db)
	scoreController := controllers.NewScoreController(db, stocks, store, hub)
	leaderboardController := controllers.NewLeaderboardController(db, store, hub)
	tribeController := controllers.NewTribeController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/leaderboard", leaderboardController.Get)
	api.POST("/leaderboard", leaderboardController.Post)
	api.POST("/leaderboard/rank", leaderboardController.Rank)
	api.GET("/leaderboard/stream", leaderboardController.Stream)

	api.POST("/predict", middleware.RateLimitMiddleware(), predictionController.Predict)
	api.POST("/tribe", middleware.RateLimitMiddleware(), tribeController.Post)

	// Both job endpoints share the cron secret gate: an open lock endpoint
	// would let any caller freeze everyone's prediction for the day.
	api.POST("/lock", middleware.CronSecretRequired(), predictionController.Lock)
	api.POST("/score", middleware.CronSecretRequired(), scoreController.Score)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
