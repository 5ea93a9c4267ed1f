package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthDeps lists the connectivity a service's health endpoint reports on.
// Redis and Breakers are nil for services that do not use them.
type HealthDeps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Breakers map[string]*infra.Breaker
}

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports peer breaker states;
// never exposes credentials or internals.
func Health(deps HealthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		ok := true
		body := gin.H{}

		dbStatus := "connected"
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
			ok = false
		}
		body["db"] = dbStatus

		if deps.Redis != nil {
			redisStatus := "connected"
			if deps.Redis.Ping(ctx).Err() != nil {
				redisStatus = "error"
				ok = false
			}
			body["redis"] = redisStatus
		}

		if len(deps.Breakers) > 0 {
			peers := gin.H{}
			for name, b := range deps.Breakers {
				// An open breaker degrades the report without failing it:
				// this service is up even when a peer is not.
				peers[name] = b.State().String()
			}
			body["peers"] = peers
		}

		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = ok
		c.JSON(status, body)
	}
}
