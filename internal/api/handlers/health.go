package handlers

import (
	"net/http"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	pkgredis "github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	redisClient *pkgredis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *pkgredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redisClient: redisClient}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	dto.OK(w, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		checks["database"] = "unavailable"
		healthy = false
	}
	if err := h.redisClient.Ping(r.Context()).Err(); err != nil {
		checks["redis"] = "unavailable"
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	dto.JSON(w, status, checks)
}
