/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd implements the ncpcheck diagnostic CLI: subcommands that
// dial an NCP server, drive the handshake, and print what came back.
package cmd

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is ncpcheck's entry point. It's exported so a wrapping
// main.go can call Execute without touching subcommand internals.
var RootCmd = &cobra.Command{
	Use:   "ncpcheck",
	Short: "diagnose an NCP server",
}

var (
	address  string
	identity string
	timeout  time.Duration
	noAuth   bool
)

func init() {
	RootCmd.PersistentFlags().StringVar(&address, "address", "", "host:port of the NCP server")
	RootCmd.PersistentFlags().StringVar(&identity, "identity", "ncpcheck", "identity to present during the CCRE exchange")
	RootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "overall deadline for the operation")
	RootCmd.PersistentFlags().BoolVar(&noAuth, "no-auth", false, "skip the CCRE/SCAR/CARE/SCON exchange")
	if err := RootCmd.MarkPersistentFlagRequired("address"); err != nil {
		log.Fatal(err)
	}
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
