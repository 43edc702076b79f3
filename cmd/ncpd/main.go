/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/crfs/ncp/ncpconn"
	"github.com/crfs/ncp/ncpconn/ncpstats"
	"github.com/crfs/ncp/server"
)

func main() {
	var (
		address        string
		configFile     string
		logLevel       string
		metricsAddr    string
		watchdogMargin time.Duration
	)

	flag.StringVar(&address, "address", fmt.Sprintf(":%d", server.DefaultPort), "host:port to listen on")
	flag.StringVar(&configFile, "config", "", "path to a YAML config, overrides defaults but not explicit flags")
	flag.StringVar(&logLevel, "loglevel", "warning", "log level: debug, info, warning, error")
	flag.StringVar(&metricsAddr, "metricsaddr", "", "host:port to serve Prometheus metrics on, disabled if empty")
	flag.DurationVar(&watchdogMargin, "watchdogmargin", 5*time.Second, "how much earlier than the systemd watchdog deadline to ping it")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("unrecognized log level: %v", logLevel)
	}

	cfg := server.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = server.ReadConfig(configFile)
		if err != nil {
			log.Fatalf("reading config: %v", err)
		}
	}
	if isFlagSet("address") {
		cfg.Address = address
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	opts := cfg.Options()
	var recorder *ncpstats.PrometheusRecorder
	if metricsAddr != "" {
		recorder = ncpstats.NewPrometheusRecorder(cfg.Address)
		prometheus.MustRegister(recorder)
		opts = append(opts, server.WithStats(recorder))
		go func() {
			log.Infof("serving metrics on %s", metricsAddr)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Error(http.ListenAndServe(metricsAddr, mux))
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := server.Serve(ctx, cfg.Address, handle, opts...)
	if err != nil {
		log.Fatalf("starting server: %v", err)
	}
	log.Infof("listening on %s", s.Addr())

	notifySystemd()
	go watchdogLoop(watchdogMargin)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	cancel()
	if err := s.Close(); err != nil {
		log.Warnf("closing listener: %v", err)
	}
}

// handle is the default connection handler: it drains and
// acknowledges every inbound field until the connection closes. A
// real deployment supplies its own handler to server.Serve instead.
func handle(c *ncpconn.Connection) {
	defer c.Close()
	for {
		f, err := c.Recv(context.Background())
		if err != nil {
			log.Debugf("connection done (state=%s): %v", c.State(), err)
			return
		}
		if err := f.Ack(); err != nil {
			log.Warnf("ack failed: %v", err)
			return
		}
	}
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func notifySystemd() {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	switch {
	case !supported && err != nil:
		log.Warnf("sd_notify failed: %v", err)
	case !supported:
		log.Debug("sd_notify not supported, NOTIFY_SOCKET unset")
	default:
		log.Info("sent sd_notify ready")
	}
}

// watchdogLoop pings systemd's watchdog at the interval it advertised,
// minus margin, for as long as the process runs (mirrors the
// supervision pattern used by the corpus's long-running daemons).
func watchdogLoop(margin time.Duration) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ping := interval - margin
	if ping <= 0 {
		ping = interval / 2
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
			log.Warnf("sd_notify watchdog ping failed: %v", err)
		}
	}
}
