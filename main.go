package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/crypto"
	"github.com/xfleet/publisher/middlewares"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"github.com/xfleet/publisher/publisher"
	"github.com/xfleet/publisher/utils"
)

const defaultPort = "8080"
const defaultCycleLimit = 30

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	env, err := config.LoadEnv()
	if err != nil {
		logger.WithError(err).Fatal("failed to load environment configuration")
	}

	sealer, err := crypto.NewSealer(env.TokenEncryptionKey, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to construct credential store")
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(correlationIdMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(env.CronAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = env.CronAllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{}
	}
	corsConfig.AddAllowMethods("POST", "OPTIONS")
	corsConfig.AddAllowHeaders("X-Cron-Secret", "Origin", "Content-Type", "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// Start listening immediately; dependency readiness is gated per-route.
	srv := &http.Server{Addr: ":" + port, Handler: r}
	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- srv.ListenAndServe() }()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisOptional()

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	platformClient := platform.NewClient(env.TwitterClientID, env.TwitterClientSecret, env.MockXAPI)
	cycle := publisher.NewCycle(db, logger, sealer, platformClient, env.Timezone)

	r.POST("/cron/publish", middlewares.CronAuth(env.CronSecret), publishHandler(cycle, logger))

	logger.WithFields(logrus.Fields{"port": port}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

type publishRequestBody struct {
	Limit *int `json:"limit"`
}

// publishHandler implements the one RPC named by spec.md §6: optional
// JSON {limit}, default 30, clamped [1,200], returning the cycle Summary.
func publishHandler(cycle *publisher.Cycle, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body publishRequestBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
				return
			}
		}

		limit := defaultCycleLimit
		if body.Limit != nil {
			limit = *body.Limit
		}

		summary, err := cycle.RunCycle(c.Request.Context(), limit)
		if err != nil {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{"correlationId": cid}).WithError(err).Error("run cycle failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

func correlationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

