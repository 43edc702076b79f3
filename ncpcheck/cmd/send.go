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
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crfs/ncp/ncpconn"
	"github.com/crfs/ncp/wire"
)

func init() {
	RootCmd.AddCommand(sendCmd)
}

func send(packetType, fieldName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.SendAndRecv(ctx, packetType, []wire.Field{{Name: fieldName}})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "param", "value"})

	f, err := resp.Next(ctx)
	if f != nil {
		printField(table, f)
	}
	table.Render()

	if _, ok := err.(*ncpconn.CommandError); ok {
		return nil
	}
	return err
}

func printField(table *tablewriter.Table, f *ncpconn.Field) {
	if len(f.Params) == 0 {
		table.Append([]string{f.Name, "", ""})
		return
	}
	for _, p := range f.Params {
		row := []string{f.Name, p.Name, fmt.Sprintf("%v", p.Value)}
		if p.Name == "ERRC" || p.Name == "ERRO" {
			row[2] = color.RedString(row[2])
		} else if p.Name == "WARC" || p.Name == "WARN" {
			row[2] = color.YellowString(row[2])
		}
		table.Append(row)
	}
}

var sendCmd = &cobra.Command{
	Use:   "send <packet-type> <field-name>",
	Short: "send an empty field and print the correlated reply",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		if err := send(args[0], args[1]); err != nil {
			log.Fatal(err)
		}
	},
}
