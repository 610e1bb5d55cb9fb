package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/kiliankoe/duelhost/internal/config"
	"github.com/kiliankoe/duelhost/internal/game"
	"github.com/rs/zerolog/log"
)

// Connections is the socket bookkeeping the routes need.
type Connections interface {
	Connections(sessionID string) int
	Forget(sessionID string)
}

// RequestLogger logs requests, skipping /socket.io noise.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		log.Info().Str("path", path).Str("method", c.Request.Method).Int("status", status).Dur("dur", dur).Msg("http")
	}
}

func Register(r *gin.Engine, reg *game.Registry, conns Connections, cfg config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC(), "sessions": reg.Len()})
	})

	// clients predicting outcomes must use the same constants
	r.GET("/api/rules", func(c *gin.Context) {
		rs := combat.DefaultRules()
		rs.Regen = cfg.EnergyRegen
		c.JSON(http.StatusOK, gin.H{
			"rules":          rs.Rules,
			"regen":          rs.Regen,
			"turnDurationMs": cfg.TurnDurationMs,
			"defaultAction":  combat.DefaultAction,
		})
	})

	r.GET("/api/sessions", func(c *gin.Context) {
		ids := reg.List()
		out := make([]gin.H, 0, len(ids))
		for _, id := range ids {
			sess, err := reg.Get(id)
			if err != nil {
				continue
			}
			snap := sess.Snapshot()
			out = append(out, gin.H{
				"sessionId":   id,
				"turnNumber":  snap.State.TurnNumber,
				"players":     len(snap.Players),
				"connections": conns.Connections(id),
			})
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	})

	r.GET("/api/sessions/:id", func(c *gin.Context) {
		id := c.Param("id")
		sess, err := reg.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot(), "connections": conns.Connections(id)})
	})

	if cfg.AdminEnabled() {
		auth := gin.BasicAuth(gin.Accounts{cfg.AdminUser: cfg.AdminPass})
		r.DELETE("/api/admin/sessions/:id", auth, func(c *gin.Context) {
			id := c.Param("id")
			if !reg.Remove(id) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
				return
			}
			conns.Forget(id)
			log.Info().Str("sessionId", id).Str("admin", c.GetString(gin.AuthUserKey)).Msg("session deleted")
			c.Status(http.StatusNoContent)
		})
	}
}

// Frontend serves the browser client for unmatched GET requests. Unknown API
// paths and other methods still get a JSON 404.
func Frontend(r *gin.Engine, h http.Handler) {
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		// gin presets 404 for unmatched routes
		c.Status(http.StatusOK)
		h.ServeHTTP(c.Writer, c.Request)
	})
}
