// Package server wires the HTTP surface: request decoding, error-kind to
// status mapping, and file responses. All real logic lives behind the
// service layer.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patungan-id/patungan/internal/config"
	"github.com/patungan-id/patungan/internal/middleware"
	"github.com/patungan-id/patungan/internal/service"
)

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(cfg config.Config, svc *service.SplitService) *gin.Engine {
	h := &handlers{svc: svc, maxUploadBytes: cfg.MaxUploadBytes}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.POST("/split", h.split)
	r.POST("/split/pdf", h.splitPDF)
	r.POST("/upload/parse", h.uploadParse)

	return r
}
