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

// Package cliconfig contains the user-visible configuration for one
// run of the signature tracker, bound from the command line with
// spf13/pflag.
package cliconfig

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config contains every flag a run accepts.
type Config struct {
	ConfigFile    string
	DRFPath       string
	XLSPath       string
	StudyDir      string
	DBPath        string
	ExclusionPath string
	PriorityPath  string
	MetricsAddr   string

	AllowSignerChanges bool
	ArrivedOnly        bool
	ResignWhenFinal    bool
	SDV                bool
	PrintVersion       bool
}

// Bind registers every flag against flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVarP(&c.ConfigFile, "config", "c", "", "signature configuration file")
	flags.StringVarP(&c.DRFPath, "drf", "d", "", "write the re-sign DRF to path")
	flags.StringVarP(&c.XLSPath, "xls", "x", "",
		"report workbook path (accepted; no workbook is written)")
	flags.BoolVarP(&c.AllowSignerChanges, "allow-signer-changes", "a", false,
		"accept covered-field edits made by the obligation's own signer")
	flags.BoolVarP(&c.ArrivedOnly, "arrived-only", "A", false,
		"omit obligations whose signature plate was never observed (accepted; no report is produced)")
	flags.BoolVarP(&c.ResignWhenFinal, "resign-when-final", "F", false,
		"demote a declined change to declined-at-final on a non-final covered plate")
	flags.BoolVarP(&c.SDV, "sdv", "S", false,
		"source-data-verification status labels (accepted; no report is produced)")
	flags.StringVarP(&c.StudyDir, "studydir", "s", "",
		"root directory for centre/country lookups (accepted; no lookup is loaded)")
	flags.StringVarP(&c.DBPath, "db", "D", "", "SQLite output database")
	flags.StringVarP(&c.ExclusionPath, "exclusion", "E", "", "administrative exclusion table")
	flags.StringVarP(&c.PriorityPath, "priority-file", "P", "", "emit a priority listing and exit")
	flags.StringVar(&c.MetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, if set")
	flags.BoolVarP(&c.PrintVersion, "version", "v", false, "print version and exit")
}

// Preflight validates flag combinations that Bind's defaults cannot
// express, and is expected to run after pflag.Parse.
func (c *Config) Preflight() error {
	if c.PrintVersion {
		return nil
	}
	if c.ConfigFile == "" {
		return errors.New("--config is required")
	}
	return nil
}
