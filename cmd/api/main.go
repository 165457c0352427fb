package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rmazariegos/campaign-gateway/internal/config"
	gateway "github.com/rmazariegos/campaign-gateway/internal/gateways"
	"github.com/rmazariegos/campaign-gateway/internal/handlers"
	"github.com/rmazariegos/campaign-gateway/internal/repository"
	"github.com/rmazariegos/campaign-gateway/internal/scheduler"
	"github.com/rmazariegos/campaign-gateway/internal/services"
	"github.com/rmazariegos/campaign-gateway/internal/telemetry"
	xhttp "github.com/rmazariegos/campaign-gateway/pkg/http"
	"github.com/rmazariegos/campaign-gateway/pkg/logger"
	"github.com/rmazariegos/campaign-gateway/pkg/pg"
	"github.com/rmazariegos/campaign-gateway/pkg/prom"
	"github.com/rmazariegos/campaign-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 30))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	var recorder telemetry.Recorder = telemetry.Nop{}
	var streamRecorder *telemetry.StreamRecorder
	if config.Get().RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisKeyPrefix, &redis.Options{
			Addrs:      []string{config.Get().RedisAddr},
			ClientName: "default",
			DB:         config.Get().RedisDatabase,
			Username:   config.Get().RedisUsername,
			Password:   config.Get().RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		streamRecorder = telemetry.NewStreamRecorder(redisAdap, telemetry.StreamConfig{
			Stream: config.Get().TelemetryStream,
			MaxLen: config.Get().TelemetryMaxLen,
		})
		recorder = streamRecorder
	} else {
		logger.Warn("Redis not configured, telemetry disabled")
	}

	client, err := gateway.NewClient(&gateway.Config{
		BroadcastURL: config.Get().ProviderBroadcastURL,
		APIKey:       config.Get().ProviderAPIKey,
		Timeout:      config.Get().ProviderTimeout,
	})
	if err != nil {
		logger.Error("failed creating broadcast client", "error", err)
		return
	}
	dispatcher := gateway.NewDispatcher(client, recorder)

	campaignRepo := repository.NewCampaignRepository(db)
	campaignService := services.NewCampaignService(campaignRepo, recorder, config.Get().CampaignDefaultDelay)
	healthService := services.NewHealthService(db)
	sched := scheduler.New(campaignRepo, dispatcher)

	campaignHandler := handlers.NewCampaignHandler(campaignService, sched, dispatcher)
	healthHandler := handlers.NewHealthHandler(healthService)

	handlers.RegisterCampaignRoutes(s.Router, campaignHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)

	if err := prom.Create(hostname(), config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed registering metrics", "error", err)
		return
	}
	go prom.ListenAndServer(config.Get().PromListenAddr, config.Get().PromMetricsPath)

	tickCtx, stopTicker := context.WithCancel(context.Background())
	go sched.Run(tickCtx, config.Get().SchedulerTickInterval)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	logger.Info("campaign-gateway up", "version", version, "commit", commit, "built", date)

	<-c
	stopTicker()
	s.Shutdown()
	if streamRecorder != nil {
		streamRecorder.Close()
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
