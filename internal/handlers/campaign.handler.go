package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/rmazariegos/campaign-gateway/internal/gateways"
	"github.com/rmazariegos/campaign-gateway/internal/model"
	"github.com/rmazariegos/campaign-gateway/internal/phone"
	"github.com/rmazariegos/campaign-gateway/internal/repository"
	"github.com/rmazariegos/campaign-gateway/internal/scheduler"
	"github.com/rmazariegos/campaign-gateway/internal/services"
	xhttp "github.com/rmazariegos/campaign-gateway/pkg/http"
)

type CampaignService interface {
	ParseNumbers(raw string) phone.ParseResult
	Create(ctx context.Context, p model.CampaignCreateRequest) (*services.CreateResult, error)
	Update(ctx context.Context, id string, p model.CampaignUpdateRequest) (*services.CreateResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	TogglePause(ctx context.Context, id string) (*model.Campaign, error)
}

type Runner interface {
	RunTick(ctx context.Context) (int, error)
	RunCampaign(ctx context.Context, id string) (*scheduler.Report, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, job gateway.Job) (*gateway.Result, error)
}

type CampaignHandler struct {
	svc        CampaignService
	runner     Runner
	dispatcher Broadcaster
}

func RegisterCampaignRoutes(e *router.Router, h *CampaignHandler) {
	e.POST("/campaigns/parse", h.ParseNumbers)
	e.GET("/campaigns", h.ListCampaigns)
	e.POST("/campaigns", h.CreateCampaign)
	e.PUT("/campaigns/{id}", h.UpdateCampaign)
	e.DELETE("/campaigns/{id}", h.DeleteCampaign)
	e.POST("/campaigns/{id}/toggle-pause", h.TogglePause)
	e.POST("/campaigns/{id}/run", h.RunCampaign)
	e.GET("/cron/tick", h.RunTick)
	e.POST("/api/send-message", h.SendMessage)
}

func NewCampaignHandler(svc CampaignService, runner Runner, dispatcher Broadcaster) *CampaignHandler {
	return &CampaignHandler{
		svc:        svc,
		runner:     runner,
		dispatcher: dispatcher,
	}
}

type parseRequest struct {
	Raw string `json:"raw"`
}

type parseResponse struct {
	Numbers           []string `json:"numbers"`
	Valid             int      `json:"valid"`
	Invalid           []string `json:"invalid"`
	DuplicatesRemoved int      `json:"duplicatesRemoved"`
}

type listCampaignsResponse struct {
	Campaigns []*model.Campaign `json:"campaigns"`
}

type campaignResponse struct {
	OK                bool            `json:"ok"`
	Campaign          *model.Campaign `json:"campaign"`
	Invalid           []string        `json:"invalid,omitempty"`
	DuplicatesRemoved int             `json:"duplicatesRemoved,omitempty"`
}

type sendMessageRequest struct {
	Number   string `json:"number"`
	Message  string `json:"message"`
	MediaURL string `json:"mediaUrl"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *CampaignHandler) ParseNumbers(ctx *xhttp.RequestCtx) {
	var req parseRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	res := h.svc.ParseNumbers(req.Raw)
	writeJSON(ctx, 200, parseResponse{
		Numbers:           res.Numbers,
		Valid:             len(res.Numbers),
		Invalid:           res.Invalid,
		DuplicatesRemoved: res.DuplicatesRemoved,
	})
}

func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	campaigns, err := h.svc.List(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, listCampaignsResponse{Campaigns: campaigns})
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req model.CampaignCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.svc.Create(ctx, req)
	if errors.Is(err, model.ErrValidation) {
		writeError(ctx, 400, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 201, campaignResponse{
		OK:                true,
		Campaign:          res.Campaign,
		Invalid:           res.Invalid,
		DuplicatesRemoved: res.DuplicatesRemoved,
	})
}

func (h *CampaignHandler) UpdateCampaign(ctx *xhttp.RequestCtx) {
	var req model.CampaignUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.svc.Update(ctx, param(ctx, "id"), req)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(ctx, 404, err.Error())
		return
	}
	if errors.Is(err, model.ErrValidation) {
		writeError(ctx, 400, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, campaignResponse{
		OK:                true,
		Campaign:          res.Campaign,
		Invalid:           res.Invalid,
		DuplicatesRemoved: res.DuplicatesRemoved,
	})
}

func (h *CampaignHandler) DeleteCampaign(ctx *xhttp.RequestCtx) {
	err := h.svc.Delete(ctx, param(ctx, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(ctx, 404, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]bool{"ok": true})
}

func (h *CampaignHandler) TogglePause(ctx *xhttp.RequestCtx) {
	c, err := h.svc.TogglePause(ctx, param(ctx, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(ctx, 404, err.Error())
		return
	}
	if errors.Is(err, model.ErrInvalidTransition) {
		writeError(ctx, 409, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, campaignResponse{OK: true, Campaign: c})
}

func (h *CampaignHandler) RunCampaign(ctx *xhttp.RequestCtx) {
	report, err := h.runner.RunCampaign(ctx, param(ctx, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(ctx, 404, err.Error())
		return
	}
	if errors.Is(err, scheduler.ErrNotRunnable) {
		writeError(ctx, 409, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"ok": true, "result": report})
}

func (h *CampaignHandler) RunTick(ctx *xhttp.RequestCtx) {
	processed, err := h.runner.RunTick(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"ok": true, "processed": processed})
}

// SendMessage is a one-off send bypassing the campaign model, reusing
// the dispatcher on a single-element list.
func (h *CampaignHandler) SendMessage(ctx *xhttp.RequestCtx) {
	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	number, ok := phone.Normalize(req.Number)
	if !ok {
		writeError(ctx, 400, "invalid number: "+req.Number)
		return
	}
	if req.Message == "" && req.MediaURL == "" {
		writeError(ctx, 400, "message is required when no mediaUrl is set")
		return
	}

	res, err := h.dispatcher.Broadcast(ctx, gateway.Job{
		Message:  req.Message,
		MediaURL: req.MediaURL,
		Numbers:  []string{number},
		Kind:     "direct",
	})
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"ok": true, "sent": res.Sent == 1})
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func param(ctx *xhttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}
