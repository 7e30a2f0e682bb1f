// Package routes assembles the gin engine.
package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/controllers"
	"github.com/princinho/sahoauth/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "sahoauth"

func NewRouter(d *controllers.Deps, allowedOrigins []string) *gin.Engine {
	r := gin.New()

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", controllers.Register(d))
		users.POST("/login", controllers.Login(d))
		users.POST("/refresh-token", controllers.Refresh(d))
	}

	secured := users.Group("")
	secured.Use(middleware.RequireAuth(d.Sessions, d.Log))
	{
		secured.POST("/logout", controllers.Logout(d))
		secured.POST("/change-password", controllers.ChangePassword(d))
		secured.GET("/current-user", controllers.CurrentUser(d))
		secured.PATCH("/update-account", controllers.UpdateAccount(d))
		secured.PATCH("/avatar", controllers.UpdateAvatar(d))
		secured.PATCH("/cover-image", controllers.UpdateCoverImage(d))
	}

	return r
}
