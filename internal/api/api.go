// Package api exposes the slug resolution core over HTTP. It owns routing
// and status-code mapping only; all correctness lives in the service layer.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"microurl/cmd/middleware"
	"microurl/internal/service"
)

type Routers struct {
	Service *service.Service
	BaseURL string
	Log     *zerolog.Logger
}

func NewRouters(r *Routers) *gin.Engine {
	app := gin.New()
	app.Use(gin.Recovery())
	app.Use(middleware.Logging(r.Log))

	h := &handlers{
		svc:     r.Service,
		baseURL: r.BaseURL,
		log:     r.Log,
	}

	v1 := app.Group("/api/v1")
	v1.POST("/shorten", h.CreateShortURL)
	v1.GET("/urls", h.ListURLs)
	v1.DELETE("/urls/:slug", h.DeleteURL)
	v1.GET("/stats/:slug", h.URLStats)
	v1.GET("/health", h.Health)

	// Redirects live outside the API prefix so short links stay short.
	app.GET("/s/:slug", h.Redirect)

	return app
}
