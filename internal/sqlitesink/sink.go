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

// Package sqlitesink writes completed signatures and their covered
// field changes to a relational writeback store, one REPLACE per row,
// inside a single transaction that commits when the sink is closed.
//
// SQLite is the default target, but the same schema, with the upsert
// statement restated per dialect (since "INSERT OR REPLACE" is
// SQLite-specific syntax), can land in Postgres or MySQL, so a
// deployment that already centralizes
// its writeback store on one of those doesn't need a second database
// just for this tool.
package sqlitesink

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmc-trials/sigtrack/internal/engine"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the handful of ways the three supported drivers
// differ: the driver name database/sql expects, the upsert verb,
// whether bound parameters are "?" or "$N", and whether a transient
// startup error against a database still coming up is worth retrying.
type dialect struct {
	driver      string
	replaceStmt string
	numbered    bool
	retryOpen   bool
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite", replaceStmt: "INSERT OR REPLACE INTO", retryOpen: true},
	"mysql":    {driver: "mysql", replaceStmt: "REPLACE INTO", retryOpen: true},
	"postgres": {driver: "postgres", replaceStmt: "INSERT INTO", numbered: true, retryOpen: false},
}

// bind rewrites a "?"-style statement, built with a replace verb that
// needs a conflict clause appended, for dialects that use numbered
// parameters and don't support a bare replace-into verb.
func (d dialect) bind(stmt, table, conflictCols, conflictUpdate string) string {
	if !d.numbered {
		return d.replaceStmt + " " + table + " " + stmt
	}
	n := 0
	var b strings.Builder
	for _, r := range stmt {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return d.replaceStmt + " " + table + " " + b.String() +
		fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", conflictCols, conflictUpdate)
}

func schemaFor(d dialect) string {
	return `
CREATE TABLE IF NOT EXISTS signings (
	txnid INTEGER, sigid TEXT, pid TEXT, visit INTEGER, plate INTEGER,
	sdesc TEXT, signer TEXT, sdate TEXT, stime TEXT,
	PRIMARY KEY (txnid, sigid, pid, visit, plate)
);
CREATE TABLE IF NOT EXISTS signature_values (
	txnid INTEGER, sigid TEXT, plate INTEGER, field INTEGER,
	fdesc TEXT, fvalue TEXT,
	PRIMARY KEY (txnid, sigid, plate, field)
);
CREATE TABLE IF NOT EXISTS data_values (
	txnid INTEGER, sigid TEXT, plate INTEGER, field INTEGER,
	fdesc TEXT, fvalue TEXT,
	PRIMARY KEY (txnid, sigid, plate, field)
);
`
}

// Sink implements engine.Sink against a relational writeback store.
type Sink struct {
	db  *sql.DB
	tx  *sql.Tx
	log *log.Logger
	d   dialect
}

// Open creates (or reuses) the SQLite database at path, applies the
// schema, and begins the single transaction every subsequent write
// lands in. It is OpenOrCreate("sqlite", path, logger) under the hood.
func Open(path string, logger *log.Logger) (*Sink, error) {
	return OpenOrCreate("sqlite", path, logger)
}

// OpenOrCreate opens a writeback store of the given dialect ("sqlite",
// "mysql", or "postgres"), applies the schema, and begins the single
// transaction every subsequent write lands in. For dialects that can
// see transient startup errors against a database that is still
// coming up, the open is retried once after a short delay.
func OpenOrCreate(dialectName, dsn string, logger *log.Logger) (*Sink, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	d, ok := dialects[dialectName]
	if !ok {
		return nil, errors.Errorf("sqlitesink: unknown dialect %q", dialectName)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", dialectName)
	}

	if err := db.Ping(); err != nil {
		if !d.retryOpen {
			db.Close()
			return nil, errors.Wrapf(err, "pinging %s database", dialectName)
		}
		logger.WithError(err).Info("waiting for database to become ready")
		time.Sleep(2 * time.Second)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "pinging %s database", dialectName)
		}
	}

	if _, err := db.Exec(schemaFor(d)); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "applying %s schema", dialectName)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "beginning %s transaction", dialectName)
	}
	return &Sink{db: db, tx: tx, log: logger, d: d}, nil
}

// WriteSigning dumps a just-completed signature: the signing row
// itself, every signature field, and every covered-plate field change
// currently pending on the node.
func (s *Sink) WriteSigning(n *engine.SigNode) {
	sigID := n.Config.Name
	_, err := s.tx.Exec(
		s.d.bind(`(txnid, sigid, pid, visit, plate, sdesc, signer, sdate, stime)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, "signings",
			"txnid, sigid, pid, visit, plate", "sdesc=excluded.sdesc, signer=excluded.signer, sdate=excluded.sdate, stime=excluded.stime"),
		n.TxnID, sigID, n.Patient, n.Visit, n.Config.SigPlate, n.Config.Name, n.Signer, n.Date, n.Time,
	)
	if err != nil {
		s.log.WithError(err).WithField("patient", n.Patient).Error("writeback: insert signing row failed, row abandoned")
	}

	for _, sf := range n.SigFields {
		_, err := s.tx.Exec(
			s.d.bind(`(txnid, sigid, plate, field, fdesc, fvalue)
			 VALUES (?, ?, ?, ?, ?, ?)`, "signature_values",
				"txnid, sigid, plate, field", "fdesc=excluded.fdesc, fvalue=excluded.fvalue"),
			n.TxnID, sigID, n.Config.SigPlate, sf.FieldNumber, sf.Desc, sf.Value,
		)
		if err != nil {
			s.log.WithError(err).WithField("field", sf.FieldNumber).Error("writeback: insert signature_values row failed, row abandoned")
		}
	}

	for _, plate := range n.Plates() {
		for _, fc := range plate.Changes() {
			s.writeDataValue(n, sigID, plate.Plate, fc)
		}
	}
}

// WriteDataValue replaces a single covered-field change observed
// later in the same signing transaction.
func (s *Sink) WriteDataValue(n *engine.SigNode, plate int64, fc *engine.FieldChange) {
	s.writeDataValue(n, n.Config.Name, plate, fc)
}

func (s *Sink) writeDataValue(n *engine.SigNode, sigID string, plate int64, fc *engine.FieldChange) {
	_, err := s.tx.Exec(
		s.d.bind(`(txnid, sigid, plate, field, fdesc, fvalue)
		 VALUES (?, ?, ?, ?, ?, ?)`, "data_values",
			"txnid, sigid, plate, field", "fdesc=excluded.fdesc, fvalue=excluded.fvalue"),
		n.TxnID, sigID, plate, fc.Field, fc.Desc, fc.NewValue,
	)
	if err != nil {
		s.log.WithError(err).WithField("field", fc.Field).Error("writeback: insert data_values row failed, row abandoned")
	}
}

// Close commits the transaction and closes the database handle. Per
// the single-run, no-rollback-on-success contract, a commit failure is
// returned to the caller rather than silently swallowed.
func (s *Sink) Close() error {
	if err := s.tx.Commit(); err != nil {
		s.db.Close()
		return errors.Wrap(err, "committing writeback transaction")
	}
	return s.db.Close()
}
