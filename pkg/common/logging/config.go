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


package logging

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/common"
)

// Config is the logging section of a service config.
type Config struct {
	// Level is a logrus level name, defaults to info.
	Level string `yaml:"level"`
	// Format is either "json" or "text".
	Format string       `yaml:"format"`
	Sentry SentryConfig `yaml:"sentry"`
}

// Setup configures the standard logger with the service's default fields
// and returns the parsed initial level.
func Setup(cfg Config, app string) (log.Level, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = log.ParseLevel(cfg.Level); err != nil {
			return level, err
		}
	}

	var formatter log.Formatter = &log.JSONFormatter{}
	if cfg.Format == "text" {
		formatter = &log.TextFormatter{FullTimestamp: true}
	}
	log.SetFormatter(&LogFieldFormatter{
		Formatter: formatter,
		Fields:    log.Fields{common.AppLogField: app},
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(level)

	return level, ConfigureSentry(&cfg.Sentry)
}
