package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/rmazariegos/campaign-gateway/pkg/http"
)

type HealthService interface {
	Get() error
}
type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e *router.Router, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if h.healthService != nil {
		if err := h.healthService.Get(); err != nil {
			ctx.Response.SetStatusCode(500)
			ctx.Response.SetBodyString(err.Error())
			return
		}
	}
	ctx.Response.SetBodyString("success")
}
