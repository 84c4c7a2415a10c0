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

// Package sitelookup loads the read-only patient-to-site and
// site-to-country lookup tables that say where a patient was enrolled.
// Neither internal/report nor cmd/sigtrack calls it.
package sitelookup

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Lookup is the patient/site/country query surface. Table
// (file-backed) and PGTable (database-backed) both satisfy it.
type Lookup interface {
	Site(patient string) (string, bool)
	Country(site string) (string, bool)
}

var _ Lookup = (*Table)(nil)
var _ Lookup = (*PGTable)(nil)

// Table answers patient -> site and site -> country lookups.
type Table struct {
	patientSite map[string]string
	siteCountry map[string]string
}

// New returns an empty, usable Table.
func New() *Table {
	return &Table{
		patientSite: make(map[string]string),
		siteCountry: make(map[string]string),
	}
}

// LoadPatients reads a "patient|site" delimited file. Rows with fewer
// than 2 columns are logged and skipped.
func (t *Table) LoadPatients(r io.Reader, logger *log.Logger) {
	loadPairs(r, logger, "patient", t.patientSite)
}

// LoadCentres reads a "site|country" delimited file. Rows with fewer
// than 2 columns are logged and skipped.
func (t *Table) LoadCentres(r io.Reader, logger *log.Logger) {
	loadPairs(r, logger, "centre", t.siteCountry)
}

func loadPairs(r io.Reader, logger *log.Logger, rowKind string, into map[string]string) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 2)
		if len(fields) < 2 {
			logger.WithField("line", lineNo).Warnf("%s row has fewer than 2 columns, skipping", rowKind)
			continue
		}
		into[fields[0]] = fields[1]
	}
}

// Site returns the site a patient belongs to, and whether it was
// found.
func (t *Table) Site(patient string) (string, bool) {
	s, ok := t.patientSite[patient]
	return s, ok
}

// Country returns the country a site belongs to, and whether it was
// found.
func (t *Table) Country(site string) (string, bool) {
	c, ok := t.siteCountry[site]
	return c, ok
}

// queryRower is implemented by pgx.Conn and pgx.Tx; it is the minimal
// query method a single-row lookup needs, so a deployment
// already running the tables through Postgres doesn't have to also
// maintain a pair of flat files.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

var (
	_ queryRower = (*pgx.Conn)(nil)
	_ queryRower = (pgx.Tx)(nil)
)

// PGTable answers the same lookups as Table, against a Postgres
// connection instead of flat files. The module is single-threaded
// (there is no worker pool dispatching lookups concurrently), so a
// single *pgx.Conn is enough; there is no pool to manage.
type PGTable struct {
	conn         queryRower
	patientTable string
	centreTable  string
}

// OpenPGTable connects to dsn and returns a PGTable that queries
// patientTable (columns: patient, site) and centreTable (columns:
// site, country) for each lookup.
func OpenPGTable(ctx context.Context, dsn, patientTable, centreTable string) (*PGTable, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres lookup database")
	}
	return &PGTable{conn: conn, patientTable: patientTable, centreTable: centreTable}, nil
}

// Site returns the site a patient belongs to, and whether it was
// found.
func (p *PGTable) Site(patient string) (string, bool) {
	var site string
	err := p.conn.QueryRow(context.Background(),
		"SELECT site FROM "+p.patientTable+" WHERE patient = $1", patient).Scan(&site)
	if err != nil {
		return "", false
	}
	return site, true
}

// Country returns the country a site belongs to, and whether it was
// found.
func (p *PGTable) Country(site string) (string, bool) {
	var country string
	err := p.conn.QueryRow(context.Background(),
		"SELECT country FROM "+p.centreTable+" WHERE site = $1", site).Scan(&country)
	if err != nil {
		return "", false
	}
	return country, true
}
