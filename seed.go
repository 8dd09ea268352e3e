package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"medishop/ledger"
	"medishop/utils"
)

var sampleProducts = []ledger.ProductInput{
	{
		Name:        "Paracetamol 500mg",
		Description: "Pain relief tablets for headaches and fever with fast-acting ingredients.",
		Category:    "pain-relief",
		Price:       7.00,
		Stock:       100,
	},
	{
		Name:        "Vitamin C 1000mg",
		Description: "High potency Vitamin C supplement for immune support.",
		Category:    "vitamins",
		Price:       24.99,
		Stock:       75,
	},
	{
		Name:        "Omega-3 Fish Oil",
		Description: "Heart health capsules with essential fatty acids EPA and DHA.",
		Category:    "heart-health",
		Price:       32.99,
		Stock:       50,
	},
	{
		Name:        "Daily Multivitamin",
		Description: "Complete daily nutrition supplement supporting overall wellness.",
		Category:    "vitamins",
		Price:       19.99,
		Stock:       60,
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample products into an empty catalog and create the admin account",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, client, store, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	n, err := ledger.NewCatalogService(store.Products).Seed(ctx, sampleProducts)
	if err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	if n == 0 {
		slog.Info("Catalog already populated, no products inserted")
	} else {
		slog.Info("Seeded products", "count", n)
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		slog.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}
	users := ledger.NewUserService(store.Users, utils.NewTokenIssuer(cfg.JWTSecret))
	created, err := users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	slog.Info("Admin account ready", "email", cfg.Admin.Email, "created", created)
	return nil
}
