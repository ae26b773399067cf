package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/database"
	"github.com/charlesng35/teamdash/pkg/logger"
)

const healthTimeout = 2 * time.Second

// Health reports readiness. The database must answer a ping within
// healthTimeout for the service to be considered healthy.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthTimeout)
		defer cancel()

		if err := database.PingGorm(ctx, db); err != nil {
			logger.WithModule("health").Warn("database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":    false,
				"status":     "unavailable",
				"database":   "down",
				"checked_at": time.Now().UTC(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"status":     "ok",
			"database":   "up",
			"checked_at": time.Now().UTC(),
		})
	}
}
