package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

var (
	productsFind string
	productsJSON bool
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List indexed products",
	RunE:  runProducts,
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete [product-id]",
	Short: "Remove a product from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsDelete,
}

func init() {
	productsCmd.Flags().StringVar(&productsFind, "find", "", "filter by name or content match")
	productsCmd.Flags().BoolVar(&productsJSON, "json", false, "output as JSON")
	productsCmd.AddCommand(productsDeleteCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	ctx := context.Background()
	var products []domain.ProductInfo
	if productsFind != "" {
		products = assistantService.FindProducts(ctx, productsFind)
	} else {
		products = assistantService.Products(ctx)
	}

	if productsJSON {
		return printJSON(cmd, products)
	}

	if len(products) == 0 {
		cmd.Println("No products indexed.")
		return nil
	}

	for _, p := range products {
		cmd.Printf("  %-24s %s (%d pages, %d embeddings)\n",
			p.ID, p.Name, p.TotalPages, p.EmbeddingsCount)
	}
	return nil
}

func runProductsDelete(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	if err := assistantService.DeleteProduct(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
