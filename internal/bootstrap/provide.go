// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap wires together one run of the signature tracker:
// logger, parsed configuration, exclusion table, SQLite sink, and the
// engine itself.
package bootstrap

import (
	"os"

	"github.com/dmc-trials/sigtrack/internal/applog"
	"github.com/dmc-trials/sigtrack/internal/cliconfig"
	"github.com/dmc-trials/sigtrack/internal/engine"
	"github.com/dmc-trials/sigtrack/internal/exclusion"
	"github.com/dmc-trials/sigtrack/internal/sigconfig"
	"github.com/dmc-trials/sigtrack/internal/sqlitesink"
	"github.com/google/wire"
	log "github.com/sirupsen/logrus"
)

// Runtime bundles the pieces a run of the tracker needs once
// bootstrap completes.
type Runtime struct {
	Logger  *log.Logger
	Configs []*sigconfig.Config
	Engine  *engine.Engine
}

// Set is the provider set a run of the tracker is assembled from.
var Set = wire.NewSet(
	ProvideLogger,
	ProvideConfigs,
	ProvideExclusionTable,
	ProvideSink,
	ProvideEngine,
	ProvideRuntime,
)

// ProvideLogger constructs the run's logger at info level; no CLI flag
// changes the level.
func ProvideLogger(cli *cliconfig.Config) (*log.Logger, error) {
	return applog.New("info")
}

// ProvideConfigs parses the signature-definition file named by cli.
func ProvideConfigs(cli *cliconfig.Config, logger *log.Logger) ([]*sigconfig.Config, error) {
	f, err := os.Open(cli.ConfigFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sigconfig.Parse(f, cli.ConfigFile, applog.Rejects())
}

// ProvideExclusionTable loads the administrative exclusion table, if
// one was configured; a nil table is a valid, always-missing table.
func ProvideExclusionTable(cli *cliconfig.Config, logger *log.Logger) (*exclusion.Table, error) {
	if cli.ExclusionPath == "" {
		return nil, nil
	}
	f, err := os.Open(cli.ExclusionPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return exclusion.Load(f, logger), nil
}

// ProvideSink opens the SQLite writeback sink, if one was configured.
func ProvideSink(cli *cliconfig.Config, logger *log.Logger) (engine.Sink, func(), error) {
	if cli.DBPath == "" {
		return nil, func() {}, nil
	}
	sink, err := sqlitesink.Open(cli.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() { _ = sink.Close() }, nil
}

// ProvideEngine assembles the signature state engine.
func ProvideEngine(
	configs []*sigconfig.Config, excl *exclusion.Table, sink engine.Sink,
) *engine.Engine {
	return engine.New(configs, excl, sink)
}

// ProvideRuntime bundles everything a run needs after bootstrap.
func ProvideRuntime(logger *log.Logger, configs []*sigconfig.Config, eng *engine.Engine) *Runtime {
	return &Runtime{Logger: logger, Configs: configs, Engine: eng}
}
