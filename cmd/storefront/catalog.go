package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and maintain the product catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every product as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := catalog.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer products.Close()

		list, err := products.List(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	},
}

var (
	updateName     string
	updateCategory string
	updatePrice    string
	updateStock    int
	updateImageRef string
)

// Only flags given on the command line are written; the rest stay unchanged.
var catalogUpdateCmd = &cobra.Command{
	Use:   "update <product-id>",
	Short: "Change a product's attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid product id %q", args[0])
		}

		var update catalog.ProductUpdate
		flags := cmd.Flags()
		if flags.Changed("name") {
			update.Name = domain.Some(updateName)
		}
		if flags.Changed("category") {
			update.Category = domain.Some(updateCategory)
		}
		if flags.Changed("price") {
			price, err := decimal.NewFromString(updatePrice)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", updatePrice, err)
			}
			update.Price = domain.Some(price)
		}
		if flags.Changed("stock") {
			update.Stock = domain.Some(updateStock)
		}
		if flags.Changed("image-ref") {
			update.ImageRef = domain.Some(updateImageRef)
		}
		if update.IsEmpty() {
			return fmt.Errorf("nothing to update")
		}

		products, err := catalog.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer products.Close()

		p, err := products.Update(cmd.Context(), id, update)
		if err != nil {
			return err
		}
		log.Info("product updated", zap.Int64("product_id", p.ID), zap.String("price", p.Price.String()))
		return nil
	},
}

func init() {
	f := catalogUpdateCmd.Flags()
	f.StringVar(&updateName, "name", "", "product name")
	f.StringVar(&updateCategory, "category", "", "product category")
	f.StringVar(&updatePrice, "price", "", "unit price, e.g. 89.90")
	f.IntVar(&updateStock, "stock", 0, "units in stock")
	f.StringVar(&updateImageRef, "image-ref", "", "image reference")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogUpdateCmd)
}
