package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mutter0815/mailflow/docs"
	"github.com/Mutter0815/mailflow/pkg/metrics"
)

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Observability())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", docs.CampaignSwaggerHTML)
	})
	r.GET("/docs/campaign-api/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", docs.CampaignOpenAPI)
	})

	v1 := r.Group("/api/v1")
	v1.POST("/campaigns/send", h.SendCampaign)
	v1.GET("/campaigns", h.ListCampaigns)
	v1.GET("/campaigns/:id", h.GetCampaign)

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
