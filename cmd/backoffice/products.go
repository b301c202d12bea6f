package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/client"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Short:   "Manage products",
	GroupID: "records",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := listState(cmd.Context(), cmd, listing.EntityProducts)
		if err != nil {
			return err
		}
		list, err := api.ListProducts(cmd.Context(), state.Encode())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), list)
		}
		rows := make([][]string, len(list.Data))
		for i, p := range list.Data {
			rows[i] = productRow(p)
		}
		printTable(cmd.OutOrStdout(), productColumns, rows)
		printPagination(cmd.OutOrStdout(), list.Pagination, len(list.Data), "products")
		return nil
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := api.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return showProduct(cmd, product)
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	Long:  "Create a product. Products are active unless --active=false is given.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := api.CreateProduct(cmd.Context(), productRequest(cmd))
		if err != nil {
			return err
		}
		return showProduct(cmd, product)
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := productRequest(cmd)
		if *req == (client.ProductRequest{}) {
			return fmt.Errorf("nothing to update; set at least one of --name, --description, --price, --sku or --active")
		}
		product, err := api.UpdateProduct(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return showProduct(cmd, product)
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteProduct(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "product %s deleted\n", args[0])
		return nil
	},
}

func activateCmd(use, done, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.SetProductActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %s %s\n", args[0], done)
			return nil
		},
	}
}

func productRequest(cmd *cobra.Command) *client.ProductRequest {
	return &client.ProductRequest{
		Name:        optString(cmd, "name"),
		Description: optString(cmd, "description"),
		Price:       optString(cmd, "price"),
		SKU:         optString(cmd, "sku"),
		Active:      optBool(cmd, "active"),
	}
}

func showProduct(cmd *cobra.Command, p *model.Product) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	printProduct(cmd.OutOrStdout(), p)
	return nil
}

// optString returns the flag's value when it was set on the command line.
func optString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func init() {
	addListFlags(productsListCmd, listing.EntityProducts)

	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().String("name", "", "product name")
		c.Flags().String("description", "", "description")
		c.Flags().String("price", "", "price with up to two decimals, e.g. 19.99")
		c.Flags().String("sku", "", "stock keeping unit, unique")
		c.Flags().Bool("active", true, "whether the product is for sale")
	}

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsCreateCmd)
	productsCmd.AddCommand(productsUpdateCmd)
	productsCmd.AddCommand(productsDeleteCmd)
	productsCmd.AddCommand(activateCmd("activate", "activated", "Put a product on sale", true))
	productsCmd.AddCommand(activateCmd("deactivate", "deactivated", "Take a product off sale", false))
}
