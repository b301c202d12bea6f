package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/presence"
)

var presenceCmd = &cobra.Command{
	Use:     "presence",
	Short:   "Show who is using the dashboard",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := api.Presence(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nobody online")
			return nil
		}
		rows := make([][]string, len(entries))
		for i, e := range entries {
			rows[i] = presenceRow(e)
		}
		printTable(cmd.OutOrStdout(), []string{"USER", "NAME", "STATE", "IDLE", "REQUESTS", "LAST REQUEST"}, rows)
		return nil
	},
}

func presenceRow(e presence.Entry) []string {
	state := "active"
	if e.Idle {
		state = "idle"
	}
	idle := (time.Duration(e.IdleSecs) * time.Second).String()
	return []string{e.UserID, e.Name, state, idle, fmt.Sprint(e.RequestCount), e.LastRequest}
}

