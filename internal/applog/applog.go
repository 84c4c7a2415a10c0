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

// Package applog configures the two logrus loggers the rest of the
// tree needs: one for the run itself, and one dedicated to
// configuration-rejection output, logged before the host aborts.
package applog

import (
	log "github.com/sirupsen/logrus"
)

// New returns a logger writing structured text to stderr at the given
// level. An empty level defaults to "info".
func New(level string) (*log.Logger, error) {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(parsed)
	return l, nil
}

// Rejects returns a logger dedicated to configuration-syntax errors:
// same destination and formatting, but always at Error level so
// accumulated parse errors are never silently filtered by a quieter
// run-level setting.
func Rejects() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetLevel(log.ErrorLevel)
	return l
}
