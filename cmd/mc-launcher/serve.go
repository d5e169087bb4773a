package main

import (
	"context"
	"errors"
	"flag"
	exitReload "github.com/MrMelon54/exit-reload"
	"github.com/google/subcommands"
	"github.com/mrmelon54/mc-launch-engine/cmd/mc-launcher/routes"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type serveCommand struct{}

func (*serveCommand) Name() string     { return "serve" }
func (*serveCommand) Synopsis() string { return "serve the launcher over http" }
func (*serveCommand) Usage() string {
	return `Usage: mc-launcher serve

	Serves profiles, versions, acquisition and history over http on the
	configured listen address. SIGHUP reloads config.yml and profiles.yml.
`
}
func (*serveCommand) SetFlags(*flag.FlagSet) {}

func (*serveCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	a.log.Info("Starting up MC Launcher")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	l, closeFn, err := a.launcher(reg)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()

	launchConf := func() launch_args.Config { return a.config().Launch }
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	srv := &http.Server{
		Addr:              a.config().Listen,
		Handler:           routes.Router(l, a.profilesYml, launchConf, metrics, a.log.Named("http")),
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       time.Minute,
		MaxHeaderBytes:    5000,
	}
	go func() {
		a.log.Info("Listening", zap.String("addr", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Serve HTTP Error", zap.Error(err))
		}
	}()

	exitReload.ExitReload("MC Launcher", func() {
		if err := a.reload(); err != nil {
			a.log.Error("Failed to reload config", zap.Error(err))
		}
	}, func() {
		if err := srv.Close(); err != nil {
			a.log.Error("Failed to close server", zap.Error(err))
		}
	})
	return subcommands.ExitSuccess
}
