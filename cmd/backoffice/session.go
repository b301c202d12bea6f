package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Issue dashboard sessions",
	GroupID: "system",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Issue a session token for a user (requires the service token)",
	Example: `  backoffice session issue ada@example.com --ttl 2h
  BACKOFFICE_TOKEN=$(backoffice session issue ada@example.com --quiet) backoffice users list`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		quiet, _ := cmd.Flags().GetBool("quiet")

		sess, err := api.IssueSession(cmd.Context(), args[0], ttl)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch {
		case jsonOutput:
			return printJSON(w, sess)
		case quiet:
			fmt.Fprintln(w, sess.Token)
		default:
			fmt.Fprintf(w, "Token:      %s\n", sess.Token)
			fmt.Fprintf(w, "User:       %s\n", sess.UserID)
			fmt.Fprintf(w, "Expires At: %s\n", formatTime(sess.ExpiresAt))
		}
		return nil
	},
}

func init() {
	sessionIssueCmd.Flags().Duration("ttl", 0, "session lifetime (server default when unset)")
	sessionIssueCmd.Flags().Bool("quiet", false, "print only the token")
	sessionCmd.AddCommand(sessionIssueCmd)
}
