package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/client"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Short:   "Manage users",
	GroupID: "records",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := listState(cmd.Context(), cmd, listing.EntityUsers)
		if err != nil {
			return err
		}
		list, err := api.ListUsers(cmd.Context(), state.Encode())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), list)
		}
		rows := make([][]string, len(list.Data))
		for i, u := range list.Data {
			rows[i] = userRow(u)
		}
		printTable(cmd.OutOrStdout(), userColumns, rows)
		printPagination(cmd.OutOrStdout(), list.Pagination, len(list.Data), "users")
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := api.GetUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return showUser(cmd, user)
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := api.CreateUser(cmd.Context(), userRequest(cmd))
		if err != nil {
			return err
		}
		return showUser(cmd, user)
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := userRequest(cmd)
		if *req == (client.UserRequest{}) {
			return fmt.Errorf("nothing to update; set --name, --email or --verified")
		}
		user, err := api.UpdateUser(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return showUser(cmd, user)
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user and their image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s deleted\n", args[0])
		return nil
	},
}

func verifyCmd(use, done, short string, verified bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.SetUserVerified(cmd.Context(), args[0], verified); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s %s\n", args[0], done)
			return nil
		},
	}
}

var usersImageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage a user's profile image",
}

var usersImageSetCmd = &cobra.Command{
	Use:   "set <id> <file>",
	Short: "Upload a profile image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		user, err := api.UploadUserImage(cmd.Context(), args[0], bytes.NewReader(data), http.DetectContentType(data))
		if err != nil {
			return err
		}
		return showUser(cmd, user)
	},
}

var usersImageRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a profile image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteUserImage(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "image of user %s removed\n", args[0])
		return nil
	},
}

func userRequest(cmd *cobra.Command) *client.UserRequest {
	return &client.UserRequest{
		Name:          optString(cmd, "name"),
		Email:         optString(cmd, "email"),
		EmailVerified: optBool(cmd, "verified"),
	}
}

func showUser(cmd *cobra.Command, u *model.User) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), u)
	}
	printUser(cmd.OutOrStdout(), u)
	return nil
}

func init() {
	addListFlags(usersListCmd, listing.EntityUsers)

	for _, c := range []*cobra.Command{usersCreateCmd, usersUpdateCmd} {
		c.Flags().String("name", "", "full name")
		c.Flags().String("email", "", "email address")
		c.Flags().Bool("verified", false, "mark the email as verified")
	}

	usersImageCmd.AddCommand(usersImageSetCmd)
	usersImageCmd.AddCommand(usersImageRemoveCmd)

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersCmd.AddCommand(verifyCmd("verify", "verified", "Mark a user's email as verified", true))
	usersCmd.AddCommand(verifyCmd("unverify", "unverified", "Mark a user's email as unverified", false))
	usersCmd.AddCommand(usersImageCmd)
}
