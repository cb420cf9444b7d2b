package http

import (
	"context"
	"net/http"

	"github.com/dkeye/studysync/internal/adapters/signal"
	"github.com/dkeye/studysync/internal/app"
	"github.com/dkeye/studysync/internal/config"
	"github.com/dkeye/studysync/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

// ClientTokenMiddleware tags every browser with a token kept in the
// session cookie. The token only correlates log lines; connections are
// still identified per socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, sup *app.Supervisor) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("StudySyncSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	ctrl := signal.NewSignalWSController(sup, cfg)
	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// GET /api/rooms — rooms of the closed identity set
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"rooms":       sup.Rooms.List(),
			"connections": sup.Registry.ConnectionCount(),
		})
	})

	// GET /api/rooms/:identity/members — connections in one room
	api.GET("/rooms/:identity/members", func(c *gin.Context) {
		identity, err := domain.ParseIdentity(c.Param("identity"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"identity": identity,
			"members":  sup.Rooms.MembersSnapshot(identity),
		})
	})

	return r
}
