package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gateway "github.com/rmazariegos/campaign-gateway/internal/gateways"
	"github.com/rmazariegos/campaign-gateway/internal/model"
	"github.com/rmazariegos/campaign-gateway/internal/phone"
	"github.com/rmazariegos/campaign-gateway/internal/repository"
	"github.com/rmazariegos/campaign-gateway/internal/scheduler"
	"github.com/rmazariegos/campaign-gateway/internal/services"
	xhttp "github.com/rmazariegos/campaign-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) ParseNumbers(raw string) phone.ParseResult {
	args := m.Called(raw)
	return args.Get(0).(phone.ParseResult)
}

func (m *MockCampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*services.CreateResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreateResult), args.Error(1)
}

func (m *MockCampaignService) Update(ctx context.Context, id string, p model.CampaignUpdateRequest) (*services.CreateResult, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreateResult), args.Error(1)
}

func (m *MockCampaignService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCampaignService) List(ctx context.Context) ([]*model.Campaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) Get(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) TogglePause(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunTick(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRunner) RunCampaign(ctx context.Context, id string) (*scheduler.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.Report), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, job gateway.Job) (*gateway.Result, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestCampaignHandler_ParseNumbers(t *testing.T) {
	svc := new(MockCampaignService)
	handler := NewCampaignHandler(svc, nil, nil)

	svc.On("ParseNumbers", "12345678\nabc").Return(phone.ParseResult{
		Numbers: []string{"50212345678"},
		Invalid: []string{"abc"},
	})

	body, _ := json.Marshal(parseRequest{Raw: "12345678\nabc"})
	ctx := setupTestContext("POST", "/campaigns/parse", body)
	handler.ParseNumbers(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var resp parseResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, []string{"50212345678"}, resp.Numbers)
	assert.Equal(t, 1, resp.Valid)
	assert.Equal(t, []string{"abc"}, resp.Invalid)
	svc.AssertExpectations(t)
}

func TestCampaignHandler_CreateCampaign(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc, nil, nil)

		created := &model.Campaign{ID: "cmp_1", Name: "Promo", Status: model.CampaignStatusScheduled}
		svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.CampaignCreateRequest) bool {
			return p.Name == "Promo"
		})).Return(&services.CreateResult{Campaign: created, Invalid: []string{"abc"}}, nil)

		body, _ := json.Marshal(model.CampaignCreateRequest{
			Name:        "Promo",
			Message:     "hola",
			ScheduledAt: "2025-06-01T12:00:00Z",
			Numbers:     []string{"12345678", "abc"},
		})
		ctx := setupTestContext("POST", "/campaigns", body)
		handler.CreateCampaign(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var resp campaignResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "cmp_1", resp.Campaign.ID)
		assert.Equal(t, []string{"abc"}, resp.Invalid)
		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewCampaignHandler(new(MockCampaignService), nil, nil)
		ctx := setupTestContext("POST", "/campaigns", []byte("not json"))
		handler.CreateCampaign(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrNoValidRecipients)
		handler := NewCampaignHandler(svc, nil, nil)

		body, _ := json.Marshal(model.CampaignCreateRequest{Message: "hola"})
		ctx := setupTestContext("POST", "/campaigns", body)
		handler.CreateCampaign(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("store error", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		handler := NewCampaignHandler(svc, nil, nil)

		body, _ := json.Marshal(model.CampaignCreateRequest{Message: "hola", ScheduledAt: "2025-06-01T12:00:00Z", Numbers: []string{"12345678"}})
		ctx := setupTestContext("POST", "/campaigns", body)
		handler.CreateCampaign(ctx)
		assert.Equal(t, 500, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_ListCampaigns(t *testing.T) {
	svc := new(MockCampaignService)
	svc.On("List", mock.Anything).Return([]*model.Campaign{
		{ID: "cmp_1"}, {ID: "cmp_2"},
	}, nil)
	handler := NewCampaignHandler(svc, nil, nil)

	ctx := setupTestContext("GET", "/campaigns", nil)
	handler.ListCampaigns(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp listCampaignsResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Len(t, resp.Campaigns, 2)
}

func TestCampaignHandler_TogglePause(t *testing.T) {
	t.Run("paused", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("TogglePause", mock.Anything, "cmp_1").
			Return(&model.Campaign{ID: "cmp_1", Status: model.CampaignStatusPaused}, nil)
		handler := NewCampaignHandler(svc, nil, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_1/toggle-pause", nil)
		ctx.SetUserValue("id", "cmp_1")
		handler.TogglePause(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp campaignResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, model.CampaignStatusPaused, resp.Campaign.Status)
	})

	t.Run("invalid status is a conflict", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("TogglePause", mock.Anything, "cmp_1").Return(nil, model.ErrInvalidTransition)
		handler := NewCampaignHandler(svc, nil, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_1/toggle-pause", nil)
		ctx.SetUserValue("id", "cmp_1")
		handler.TogglePause(ctx)
		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("unknown campaign is a 404", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("TogglePause", mock.Anything, "cmp_9").Return(nil, repository.ErrNotFound)
		handler := NewCampaignHandler(svc, nil, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_9/toggle-pause", nil)
		ctx.SetUserValue("id", "cmp_9")
		handler.TogglePause(ctx)
		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_RunCampaign(t *testing.T) {
	t.Run("dispatches", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("RunCampaign", mock.Anything, "cmp_1").Return(&scheduler.Report{
			CampaignID: "cmp_1",
			Status:     model.CampaignStatusSent,
			Attempted:  2,
			Sent:       2,
		}, nil)
		handler := NewCampaignHandler(new(MockCampaignService), runner, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_1/run", nil)
		ctx.SetUserValue("id", "cmp_1")
		handler.RunCampaign(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp struct {
			OK     bool             `json:"ok"`
			Result scheduler.Report `json:"result"`
		}
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, 2, resp.Result.Sent)
	})

	t.Run("nothing due is still ok", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("RunCampaign", mock.Anything, "cmp_1").Return(&scheduler.Report{
			CampaignID: "cmp_1",
			Status:     model.CampaignStatusScheduled,
			NothingDue: true,
		}, nil)
		handler := NewCampaignHandler(new(MockCampaignService), runner, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_1/run", nil)
		ctx.SetUserValue("id", "cmp_1")
		handler.RunCampaign(ctx)
		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("not runnable is a conflict", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("RunCampaign", mock.Anything, "cmp_1").Return(nil, scheduler.ErrNotRunnable)
		handler := NewCampaignHandler(new(MockCampaignService), runner, nil)

		ctx := setupTestContext("POST", "/campaigns/cmp_1/run", nil)
		ctx.SetUserValue("id", "cmp_1")
		handler.RunCampaign(ctx)
		assert.Equal(t, 409, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_RunTick(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunTick", mock.Anything).Return(3, nil)
	handler := NewCampaignHandler(new(MockCampaignService), runner, nil)

	ctx := setupTestContext("GET", "/cron/tick", nil)
	handler.RunTick(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp struct {
		OK        bool `json:"ok"`
		Processed int  `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 3, resp.Processed)
}

func TestCampaignHandler_SendMessage(t *testing.T) {
	t.Run("normalizes and sends", func(t *testing.T) {
		dispatcher := new(MockBroadcaster)
		dispatcher.On("Broadcast", mock.Anything, mock.MatchedBy(func(job gateway.Job) bool {
			return len(job.Numbers) == 1 && job.Numbers[0] == "50212345678" && job.Kind == "direct"
		})).Return(&gateway.Result{Sent: 1, Outcomes: []gateway.Outcome{{Number: "50212345678", OK: true}}}, nil)
		handler := NewCampaignHandler(new(MockCampaignService), nil, dispatcher)

		body, _ := json.Marshal(sendMessageRequest{Number: "12345678", Message: "hola"})
		ctx := setupTestContext("POST", "/api/send-message", body)
		handler.SendMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp struct {
			OK   bool `json:"ok"`
			Sent bool `json:"sent"`
		}
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.True(t, resp.OK)
		assert.True(t, resp.Sent)
		dispatcher.AssertExpectations(t)
	})

	t.Run("invalid number rejected", func(t *testing.T) {
		handler := NewCampaignHandler(new(MockCampaignService), nil, new(MockBroadcaster))

		body, _ := json.Marshal(sendMessageRequest{Number: "abc", Message: "hola"})
		ctx := setupTestContext("POST", "/api/send-message", body)
		handler.SendMessage(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("provider not configured", func(t *testing.T) {
		dispatcher := new(MockBroadcaster)
		dispatcher.On("Broadcast", mock.Anything, mock.Anything).Return(nil, gateway.ErrNotConfigured)
		handler := NewCampaignHandler(new(MockCampaignService), nil, dispatcher)

		body, _ := json.Marshal(sendMessageRequest{Number: "12345678", Message: "hola"})
		ctx := setupTestContext("POST", "/api/send-message", body)
		handler.SendMessage(ctx)
		assert.Equal(t, 500, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_DeleteCampaign(t *testing.T) {
	svc := new(MockCampaignService)
	svc.On("Delete", mock.Anything, "cmp_1").Return(nil)
	handler := NewCampaignHandler(svc, nil, nil)

	ctx := setupTestContext("DELETE", "/campaigns/cmp_1", nil)
	ctx.SetUserValue("id", "cmp_1")
	handler.DeleteCampaign(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}
