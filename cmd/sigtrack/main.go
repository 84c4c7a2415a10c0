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

// Command sigtrack consumes a clinical-trials audit-trail stream,
// tracks per signature obligation whether it was signed and whether it
// is still valid, and writes the obligations that require re-signing
// to a DRF. The --xls, --arrived-only, --sdv and --studydir flags are
// accepted but not used: no report workbook is produced.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dmc-trials/sigtrack/internal/audit"
	"github.com/dmc-trials/sigtrack/internal/bootstrap"
	"github.com/dmc-trials/sigtrack/internal/cliconfig"
	"github.com/dmc-trials/sigtrack/internal/drf"
	"github.com/dmc-trials/sigtrack/internal/metrics"
	"github.com/dmc-trials/sigtrack/internal/priorityfile"
	"github.com/dmc-trials/sigtrack/internal/propagate"
	"github.com/spf13/pflag"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cli cliconfig.Config
	flags := pflag.NewFlagSet("sigtrack", pflag.ContinueOnError)
	cli.Bind(flags)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if cli.PrintVersion {
		fmt.Println(version)
		return 0
	}
	if err := cli.Preflight(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	rt, cleanup, err := bootstrap.Run(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer cleanup()

	if cli.MetricsAddr != "" {
		metrics.Serve(cli.MetricsAddr, rt.Logger)
	}

	if cli.PriorityPath != "" {
		f, err := os.Create(cli.PriorityPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer f.Close()
		if err := priorityfile.Write(f, rt.Configs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		return 0
	}

	var grouper audit.Grouper
	var lastTxnID int64
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		metrics.AuditLinesRead.Inc()
		line := scanner.Text()
		ev := audit.Parse(line)
		if ev == nil {
			metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonShapeAnomaly).Inc()
			continue
		}
		txnID := grouper.Next(ev)
		if txnID != lastTxnID {
			metrics.TransactionsOpened.Inc()
			lastTxnID = txnID
		}
		rt.Engine.Dispatch(ev, txnID)
	}

	policy := propagate.Policy{
		AllowSignerChanges: cli.AllowSignerChanges,
		ResignAtFinal:      cli.ResignWhenFinal,
	}
	propagate.Run(rt.Engine.Nodes(), policy)

	if cli.DRFPath != "" {
		f, err := os.Create(cli.DRFPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer f.Close()
		n, err := drf.Write(f, rt.Engine.Nodes())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		metrics.DRFRowsEmitted.Add(float64(n))
	}

	return 0
}
