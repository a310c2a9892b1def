package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/RedHatInsights/identity-event-forwarder/internal/adapter"
	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/controller/api"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/lifecycle"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/utils"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

func startForwarder(listenAddr string) {

	logger.InitLogger()
	defer logger.FlushLogger()

	logger.Log.Info("Starting identity-event-forwarder on ", utils.GetHostname())

	cfg := config.GetConfig()
	logger.Log.Info("identity-event-forwarder configuration:\n", cfg)

	if err := cfg.Validate(); err != nil {
		logger.LogFatalError("Invalid configuration", err)
	}

	userDirectory, err := adapter.NewUserDirectory(cfg.UserDirectoryImpl, cfg)
	if err != nil {
		logger.LogFatalError("Unable to create user directory", err)
	}

	manager := lifecycle.NewManager()
	if err := manager.Start(cfg); err != nil {
		logger.LogFatalError("Unable to start the delivery pipeline", err)
	}

	eventAdapter := adapter.NewAdapter(adapter.OptionsFromConfig(cfg), userDirectory)
	listener := adapter.NewListener(eventAdapter, manager, cfg.SerializerValidateSchema)
	listener.SetEnrichmentTimeout(cfg.UserLookupTimeout)

	apiMux := mux.NewRouter()
	apiMux.Use(request_id.ConfiguredRequestID("x-rh-insights-request-id"))

	monitoringServer := api.NewMonitoringServer(apiMux, cfg, func() bool {
		return manager.State() == delivery.Ready
	})
	monitoringServer.Routes()

	schemaServer := api.NewEventSchemaServer(apiMux, cfg.UrlBasePath)
	schemaServer.Routes()

	eventReceiver := api.NewEventReceiver(listener, apiMux, cfg.UrlBasePath, cfg)
	eventReceiver.Routes()

	apiSrv := utils.StartHTTPServer(listenAddr, "event receiver", apiMux)

	signalChan := make(chan os.Signal, 1)

	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalChan
	logger.Log.Info("Received signal to shutdown: ", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HttpShutdownTimeout)
	defer cancel()

	utils.ShutdownHTTPServer(ctx, "event receiver", apiSrv)

	listener.Close()

	undelivered, err := manager.Stop(cfg.ShutdownTimeout)
	if err != nil {
		logger.LogError("Unable to stop the delivery pipeline", err)
	}

	logger.Log.WithFields(logrus.Fields{"undelivered": undelivered}).Info("identity-event-forwarder shutting down")
}
