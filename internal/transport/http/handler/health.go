package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docfill/internal/bootstrap"
	mysqlClient "docfill/internal/platform/mysql"
	rabbitmqClient "docfill/internal/platform/rabbitmq"
	redisClient "docfill/internal/platform/redis"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check reports only the dependencies the configuration turned on.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	allOK := true
	add := func(name string, err error) {
		status := dependencyStatus{OK: err == nil}
		if err != nil {
			status.Message = err.Error()
			allOK = false
		}
		deps[name] = status
	}

	if h.app.Redis != nil {
		add("redis", redisClient.Ping(ctx, h.app.Redis))
	}
	if h.app.MySQL != nil {
		add("mysql", mysqlClient.Ping(ctx, h.app.MySQL))
	}
	if h.app.Config.Transcript.Enabled {
		add("rabbitmq", rabbitmqClient.Healthy(h.app.MQConn))
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, gin.H{
		"app":             h.app.Config.App.Name,
		"env":             h.app.Config.App.Env,
		"uptime_sec":      int(time.Since(h.app.StartedAt).Seconds()),
		"session_backend": h.app.Config.Session.Backend,
		"generator":       h.app.Generator.Name(),
		"dependencies":    deps,
	})
}
