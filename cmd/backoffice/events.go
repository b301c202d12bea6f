package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Show the audit trail of changes",
	GroupID: "records",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		record, _ := cmd.Flags().GetString("record")
		limit, _ := cmd.Flags().GetInt("limit")

		evts, err := api.GetEvents(cmd.Context(), record, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		if len(evts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no events")
			return nil
		}
		rows := make([][]string, len(evts))
		for i, e := range evts {
			rows[i] = eventRow(e)
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "TIME", "TOPIC", "RECORD", "ACTOR"}, rows)
		return nil
	},
}

func eventRow(e *model.Event) []string {
	actor := e.Actor
	if actor == "" {
		actor = "-"
	}
	return []string{strconv.FormatInt(e.ID, 10), formatTime(e.CreatedAt), e.Topic, e.RecordID, actor}
}

func init() {
	eventsCmd.Flags().String("record", "", "only events of this user or product ID")
	eventsCmd.Flags().Int("limit", 50, "maximum number of events")
}
