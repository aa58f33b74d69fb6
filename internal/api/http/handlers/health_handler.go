package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/majstudio/community-bot/internal/persistence"
	"github.com/majstudio/community-bot/internal/platform"
)

const readinessTimeout = 2 * time.Second

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	dataDir     string
	platform    platform.Platform
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance. Postgres and Redis are only
// checked when configured.
func NewHealthHandler(serviceName, version, dataDir string, p platform.Platform, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		dataDir:     dataDir,
		platform:    p,
		postgres:    postgres,
		redis:       redis,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports readiness: the data directory, the chat session and any
// configured database or cache.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	check := func(name string, err error) {
		if err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}

	check("data_dir", persistence.CheckDataDir(h.dataDir))
	if h.platform == nil || !h.platform.Ready() {
		check("discord", errSessionNotReady)
	} else {
		check("discord", nil)
	}
	if h.postgres.Enabled() {
		check("postgres", h.postgres.Ping(ctx))
	} else {
		depStatus["postgres"] = "disabled"
	}
	if h.redis.Enabled() {
		check("redis", h.redis.Ping(ctx))
	} else {
		depStatus["redis"] = "disabled"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

type readinessError string

func (e readinessError) Error() string { return string(e) }

const errSessionNotReady readinessError = "session not ready"
