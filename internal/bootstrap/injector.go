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

//go:build wireinject
// +build wireinject

package bootstrap

import (
	"github.com/dmc-trials/sigtrack/internal/cliconfig"
	"github.com/google/wire"
)

// Run assembles one run's Runtime from CLI configuration. The
// returned cleanup function must be called once the run completes,
// successfully or not, to close any opened sink.
func Run(cli *cliconfig.Config) (*Runtime, func(), error) {
	panic(wire.Build(Set))
}
