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


package metrics

import (
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	tallyprom "github.com/uber-go/tally/prometheus"
	tallystatsd "github.com/uber-go/tally/statsd"
)

const (
	// MetricsPath serves prometheus metrics when enabled.
	MetricsPath = "/metrics"
	// HealthPath reports the health of the process.
	HealthPath = "/health"
)

// Config will be containing the metrics configuration
type Config struct {
	Prometheus *PrometheusConfig `yaml:"prometheus"`
	Statsd     *StatsdConfig     `yaml:"statsd"`
	// FlushInterval is how often the root scope reports.
	FlushInterval time.Duration `yaml:"flush_interval"`
	// RuntimeMetrics enables the go runtime collector.
	RuntimeMetrics RuntimeConfig `yaml:"runtime_metrics"`
}

// PrometheusConfig enables the prometheus reporter.
type PrometheusConfig struct {
	Enable bool `yaml:"enable"`
}

// StatsdConfig enables the statsd reporter.
type StatsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

// RuntimeConfig configures runtime metric collection.
type RuntimeConfig struct {
	Enabled         bool          `yaml:"enabled"`
	CollectInterval time.Duration `yaml:"collect_interval"`
}

// HealthCheck reports whether the process is serving.
type HealthCheck func() bool

// InitMetricScope initializes a root scope and its closer, with a http
// server mux exposing the metrics and health endpoints.
func InitMetricScope(
	cfg *Config,
	rootMetricScope string,
	health HealthCheck,
) (tally.Scope, io.Closer, *nethttp.ServeMux, error) {
	mux := nethttp.NewServeMux()
	var reporter tally.StatsReporter
	var cachedReporter tally.CachedStatsReporter
	var promHandler nethttp.Handler
	metricSeparator := "."

	switch {
	case cfg.Prometheus != nil && cfg.Prometheus.Enable:
		// tally panics if scope name contains "-", hence force convert to "_"
		rootMetricScope = strings.Replace(rootMetricScope, "-", "_", -1)
		metricSeparator = "_"
		promReporter := tallyprom.NewReporter(tallyprom.Options{})
		cachedReporter = promReporter
		promHandler = promReporter.HTTPHandler()
	case cfg.Statsd != nil && cfg.Statsd.Enable:
		log.WithField("endpoint", cfg.Statsd.Endpoint).
			Info("Metrics configured with statsd endpoint")
		c, err := statsd.NewClient(cfg.Statsd.Endpoint, "")
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "unable to setup statsd client")
		}
		reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	default:
		log.Warn("No metrics backends configured, using the statsd.NoopClient")
		c, _ := statsd.NewNoopClient()
		reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	}

	if promHandler != nil {
		log.WithField("path", MetricsPath).Info("Setting up prometheus metrics handler")
		mux.Handle(MetricsPath, promHandler)
	}
	mux.HandleFunc(HealthPath, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if health == nil || health() {
			w.WriteHeader(nethttp.StatusOK)
			fmt.Fprintln(w, `\(★ω★)/`)
			return
		}
		w.WriteHeader(nethttp.StatusServiceUnavailable)
		fmt.Fprintln(w, `(╥﹏╥)`)
	})

	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = time.Second
	}
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         rootMetricScope,
		Tags:           map[string]string{},
		Reporter:       reporter,
		CachedReporter: cachedReporter,
		Separator:      metricSeparator,
	}, flush)
	return scope, closer, mux, nil
}
