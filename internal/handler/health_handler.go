package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"service": "appfounders-oauth",
	})
}

// Ready returns readiness status with dependency checks
// GET /ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	status := fiber.StatusOK
	checks := fiber.Map{
		"database": "ok",
		"cache":    "ok",
	}

	if h.db != nil {
		if err := h.db.PingContext(c.Context()); err != nil {
			checks["database"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Context()).Err(); err != nil {
			checks["cache"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}

	readiness := "ready"
	if status != fiber.StatusOK {
		readiness = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": readiness,
		"checks": checks,
	})
}
