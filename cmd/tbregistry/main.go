/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// The tbregistry command runs the shared network registry HTTP server.
// Configuration comes from the environment: TB_PG_DSN (or DATABASE_URL)
// selects the Postgres database, ADDR or PORT sets the bind address and
// TB_AUTH_SECRET signs bearer tokens.
package main

import (
	"fmt"
	"log/slog"
	"os"

	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/registry"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		}
	}

	applog.Init(applog.FromEnv())
	l := applog.WithComponent("registry")
	l.Info("starting registry server")
	if err := registry.Start(); err != nil {
		l.Error("registry server exited", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
