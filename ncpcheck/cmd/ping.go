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

package cmd

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(pingCmd)
}

func ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	mean, stddev := c.RTTStats()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"address", "state", "rtt mean", "rtt stddev"})
	table.Append([]string{address, c.State().String(), mean.String(), stddev.String()})
	table.Render()

	color.Green("handshake with %s succeeded", address)
	return nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "connect, handshake, and report connection state",
	Run: func(_ *cobra.Command, _ []string) {
		if err := ping(); err != nil {
			log.Fatal(err)
		}
	},
}
