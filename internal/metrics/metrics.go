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

// Package metrics exposes Prometheus counters for the shape of a run:
// how many audit lines were read and why lines were skipped, how many
// transactions were opened, how many signatures completed or were
// invalidated, and how many rows landed in the DRF.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuditLinesRead counts every line read from the audit stream,
	// regardless of disposition.
	AuditLinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigtrack_audit_lines_read_total",
		Help: "Total audit lines read from the input stream.",
	})

	// AuditLinesSkipped counts lines that produced no engine state
	// transition, broken down by reason: unparseable shape, a
	// fieldref/metadata-position event the engine never acts on, or an
	// event matching no signature configuration.
	AuditLinesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigtrack_audit_lines_skipped_total",
		Help: "Audit lines that produced no engine state transition, by reason.",
	}, []string{"reason"})

	// TransactionsOpened counts every new transaction id assigned by
	// the transaction grouper.
	TransactionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigtrack_transactions_opened_total",
		Help: "Transactions opened by the grouper.",
	})

	// SignaturesCompleted counts every transition to COMPLETE.
	SignaturesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigtrack_signatures_completed_total",
		Help: "Signature obligations that transitioned to COMPLETE.",
	})

	// SignaturesInvalidated counts every transition to INVALIDATED.
	SignaturesInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigtrack_signatures_invalidated_total",
		Help: "Signature obligations that transitioned to INVALIDATED.",
	})

	// DRFRowsEmitted counts rows written to the Data Resolution File.
	DRFRowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigtrack_drf_rows_emitted_total",
		Help: "Rows written to the Data Resolution File.",
	})
)

// Skip reasons used as the "reason" label on AuditLinesSkipped.
const (
	ReasonShapeAnomaly = "shape_anomaly"
	ReasonFieldRef     = "fieldref"
	ReasonMetadataPos  = "metadata_position"
	ReasonNoMatch      = "no_config_match"
)
