package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rmrobinson/tnsw/services/transit"
	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
	"github.com/sourcegraph/conc"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	portEnvVar   = "PORT"
	configEnvVar = "CONFIG"
	defaultPort  = 10105
)

func main() {
	var (
		configPath = flag.String("config", "", "The path to the config file; defaults to $NVS_CONFIG")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	viper.SetEnvPrefix("NVS")
	viper.BindEnv(portEnvVar)
	viper.BindEnv(configEnvVar)
	viper.SetDefault(portEnvVar, defaultPort)

	if len(*configPath) < 1 {
		*configPath = viper.GetString(configEnvVar)
	}
	if len(*configPath) > 0 {
		viper.SetConfigFile(*configPath)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatal("error reading config file",
				zap.String("path", *configPath),
				zap.Error(err),
			)
		}
	}

	cfg, err := transit.LoadConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("error loading config",
			zap.Error(err),
		)
	}
	for _, routeErr := range multierr.Errors(cfg.RouteErrors) {
		logger.Error("skipping route",
			zap.Error(routeErr),
		)
	}
	if len(cfg.Routes) < 1 {
		logger.Warn("no routes configured")
	}

	client := tripplanner.NewClient(logger, tripplanner.WithTimeout(cfg.RequestTimeout))
	fetcher := transit.NewRetryingFetcher(logger, client, cfg.MaxRetries)

	var coordinators []*transit.Coordinator
	for _, route := range cfg.Routes {
		coordinators = append(coordinators, transit.NewCoordinator(logger, fetcher, route, cfg.APIKey, cfg.ScanInterval))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := transit.NewHub(logger)

	var wg conc.WaitGroup
	updates := hub.UpdatesSize(ctx, transit.UpdateBufferSize(cfg.Routes))
	wg.Go(func() {
		transit.LogUpdates(logger, updates)
	})

	if err := hub.AddRoutes(ctx, coordinators); err != nil {
		logger.Fatal("error adding routes",
			zap.Error(err),
		)
	}

	app := transit.NewApp(logger, hub)
	connStr := fmt.Sprintf("%s:%d", "", viper.GetInt(portEnvVar))

	wg.Go(func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("error running routes",
				zap.Error(err),
			)
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("error shutting down api",
				zap.Error(err),
			)
		}
	})

	logger.Info("listening",
		zap.String("addr", connStr),
		zap.Int("route_count", len(coordinators)),
	)
	if err := app.Listen(connStr); err != nil {
		logger.Error("failed to serve",
			zap.Error(err),
		)
		stop()
	}

	wg.Wait()
}
