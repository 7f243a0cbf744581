// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benh/twesos/pkg/common"
	"github.com/benh/twesos/pkg/common/background"
	"github.com/benh/twesos/pkg/common/config"
	"github.com/benh/twesos/pkg/common/health"
	"github.com/benh/twesos/pkg/common/leader"
	"github.com/benh/twesos/pkg/common/logging"
	"github.com/benh/twesos/pkg/common/metrics"
	"github.com/benh/twesos/pkg/master"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/transport"
	"github.com/benh/twesos/pkg/middleware/inbound"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/yarpc"
	"go.uber.org/yarpc/transport/http"
	"gopkg.in/alecthomas/kingpin.v2"
)

const _stateTimeout = 5 * time.Second

var (
	version   string
	buildDate string
	buildUser string

	app = kingpin.New(common.TwesosMaster, "Twesos Master")

	debug = app.Flag(
		"debug", "enable debug mode (print full json responses)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	electionZkServers = app.Flag(
		"election-zk-server",
		"Election Zookeeper servers. Specify multiple times for multiple servers "+
			"(election.zk_servers override) (set $ELECTION_ZK_SERVERS to override)").
		Envar("ELECTION_ZK_SERVERS").
		Strings()

	port = app.Flag(
		"port", "Master port (server.port override) (set $PORT to override)").
		Envar("PORT").
		Int()

	hostname = app.Flag(
		"hostname", "Hostname advertised to peers (server.hostname override)").
		Envar("HOSTNAME").
		String()

	allocatorName = app.Flag(
		"allocator", "Allocation policy (master.allocator override)").
		Envar("ALLOCATOR").
		String()

	rootSubmissions = app.Flag(
		"root-submissions", "Allow frameworks registered as root (master.root_submissions override)").
		Envar("ROOT_SUBMISSIONS").
		Bool()

	enableSentry = app.Flag(
		"enable-sentry", "enable logging hook up to sentry").
		Default("false").
		Envar("ENABLE_SENTRY_LOGGING").
		Bool()
)

func getConfig(cfgFiles ...string) Config {
	log.WithField("files", cfgFiles).
		Info("Loading Master config")

	cfg := Config{Master: master.DefaultConfig()}
	if err := config.Parse(&cfg, cfgFiles...); err != nil {
		log.WithError(err).Fatal("Cannot parse yaml config")
	}
	if *enableSentry {
		cfg.Logging.Sentry.Enabled = true
	}

	// now, override any CLI flags in the loaded config.Config
	if len(*electionZkServers) > 0 {
		cfg.Election.ZKServers = *electionZkServers
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *hostname != "" {
		cfg.Server.Hostname = *hostname
	}
	if *allocatorName != "" {
		cfg.Master.Allocator = *allocatorName
	}
	if *rootSubmissions {
		cfg.Master.RootSubmissions = true
	}
	if cfg.Server.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			log.WithError(err).Fatal("Cannot resolve hostname")
		}
		cfg.Server.Hostname = h
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)
	cfg.Master.Address = address
	cfg.Master.BuildDate = buildDate
	cfg.Master.BuildUser = buildUser
	cfg.Sender.Address = address

	log.
		WithField("config", cfg).
		Info("Loaded Master config")
	return cfg
}

func stateHandler(m master.Master) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), _stateTimeout)
		defer cancel()

		state, err := m.GetState(ctx)
		if err != nil {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			fmt.Fprintln(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.WithError(err).Warn("failed to write master state")
		}
	}
}

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &log.JSONFormatter{},
			Fields: log.Fields{
				common.AppLogField: app.Name,
			},
		},
	)

	cfg := getConfig(*cfgFiles...)

	initialLevel, err := logging.Setup(cfg.Logging, app.Name)
	if err != nil {
		log.WithError(err).Fatal("Cannot set up logging")
	}
	if *debug {
		initialLevel = log.DebugLevel
		log.SetLevel(initialLevel)
	}

	clock := clockwork.NewRealClock()

	var candidate leader.Candidate
	rootScope, scopeCloser, mux, err := metrics.InitMetricScope(
		&cfg.Metrics,
		common.TwesosMaster,
		func() bool { return candidate != nil && candidate.IsLeader() },
	)
	if err != nil {
		log.WithError(err).Fatal("Cannot set up metrics")
	}
	defer scopeCloser.Close()
	rootScope.Counter("boot").Inc(1)

	mux.HandleFunc(logging.LevelOverwrite, logging.LevelOverwriteHandler(initialLevel, clock))

	// The sender reports dead peers back to the master as PeerExited.
	var m master.Master
	sender := transport.NewSender(
		cfg.Sender,
		func(address string) {
			if err := m.Enqueue(message.Envelope{
				Body: &message.PeerExited{Address: address},
			}); err != nil {
				log.WithError(err).
					WithField("address", address).
					Warn("failed to report exited peer")
			}
		},
		rootScope.SubScope("sender"),
	)

	m, err = master.New(cfg.Master, sender, rootScope.SubScope("master"), clock)
	if err != nil {
		log.WithError(err).Fatal("Cannot create master")
	}
	mux.HandleFunc(common.StatePath, stateHandler(m))

	rateLimitMiddleware, err := inbound.NewRateLimitInboundMiddleware(cfg.RateLimit)
	if err != nil {
		log.WithError(err).Fatal("Cannot create rate limit middleware")
	}
	defer rateLimitMiddleware.Stop()
	errorMetricsMiddleware := &inbound.ErrorMetricsInboundMiddleware{
		Scope: rootScope.SubScope("yarpc"),
	}
	leaderCheckMiddleware := &inbound.LeaderCheckInboundMiddleware{}

	dispatcher := yarpc.NewDispatcher(yarpc.Config{
		Name: transport.ServiceName,
		Inbounds: yarpc.Inbounds{
			http.NewTransport().NewInbound(
				fmt.Sprintf(":%d", cfg.Server.Port),
				http.Mux(common.RPCPath, mux),
			),
		},
		Metrics: yarpc.MetricsConfig{
			Tally: rootScope,
		},
		InboundMiddleware: yarpc.InboundMiddleware{
			Unary:  yarpc.UnaryInboundMiddleware(errorMetricsMiddleware, leaderCheckMiddleware, rateLimitMiddleware),
			Oneway: yarpc.OnewayInboundMiddleware(errorMetricsMiddleware, leaderCheckMiddleware, rateLimitMiddleware),
		},
	})
	dispatcher.Register(transport.NewInbound(m, rootScope.SubScope("inbound")).Procedures())

	id, err := leader.NewID(cfg.Server.Port, version)
	if err != nil {
		log.WithError(err).Fatal("Cannot build leader ID")
	}
	nomination := master.NewNomination(id, m, clock)
	if cfg.Election.Standalone() {
		log.Info("No election zk_servers configured, running standalone")
		candidate = leader.NewStandalone(nomination)
	} else {
		candidate, err = leader.NewCandidate(
			cfg.Election,
			rootScope,
			common.MasterRole,
			nomination,
		)
		if err != nil {
			log.WithError(err).Fatal("Unable to create leader candidate")
		}
	}
	leaderCheckMiddleware.SetCandidate(candidate)

	works := background.NewManager(clock)
	backgroundWorks := []background.Work{
		health.NewHeartbeat(rootScope, candidate).Work(cfg.Health),
	}
	if cfg.Metrics.RuntimeMetrics.Enabled {
		backgroundWorks = append(backgroundWorks,
			metrics.NewRuntimeCollector(rootScope.SubScope("runtime")).Work(cfg.Metrics.RuntimeMetrics))
	}
	if err := works.RegisterWorks(backgroundWorks...); err != nil {
		log.WithError(err).Fatal("Cannot register background works")
	}

	m.Start()

	if err := dispatcher.Start(); err != nil {
		log.WithError(err).Fatal("Could not start rpc server")
	}

	if err := candidate.Start(); err != nil {
		log.WithError(err).Fatal("Unable to start leader candidate")
	}
	works.Start()

	log.WithFields(log.Fields{
		"port":    cfg.Server.Port,
		"address": cfg.Master.Address,
	}).Info("Started master")

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		log.WithField("signal", sig.String()).Info("Stopping master")
		m.Stop()
	}()

	if err := m.Wait(); err != nil {
		log.WithError(err).Error("Master loop exited with error")
	}

	works.Stop()
	if err := candidate.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop leader candidate")
	}
	if err := dispatcher.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop rpc server")
	}
	if err := sender.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop sender")
	}
}
