// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"medishop/config"
	"medishop/controllers"
	"medishop/events"
	"medishop/ledger"
	"medishop/middleware"
	"medishop/models"
	"medishop/payment"
	"medishop/reconcile"
	"medishop/repository/mongostore"
	"medishop/routes"
	"medishop/utils"
)

func main() {
	root := &cobra.Command{
		Use:           "medishop",
		Short:         "MediShop storefront and payment API",
		RunE:          runServe, // Default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	})
	root.AddCommand(seedCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration, installs the JSON logger and connects to MongoDB.
func setup(ctx context.Context) (config.Config, *mongo.Client, *mongostore.Store, error) {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.Database)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return cfg, nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	slog.Info("Connected to MongoDB", "database", cfg.Database)
	return cfg, client, mongostore.NewStore(db), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, client, store, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("Failed to disconnect from MongoDB", "err", err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		return err
	}

	emitter := events.Multi{events.LogEmitter{Logger: slog.Default()}}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaEmitter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close()
		emitter = append(emitter, kafka)
		slog.Info("Publishing payment events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	vnpay := payment.NewVNPay(cfg.VNPay)
	momo := payment.NewMoMo(cfg.MoMo)

	deps := ledger.OrderServiceDeps{
		Products: store.Products,
		Orders:   store.Orders,
		Carts:    store.Carts,
		Pricing:  cfg.Pricing,
		Gateways: map[models.PaymentMethod]ledger.Gateway{
			models.PaymentVNPay: vnpay,
			models.PaymentMoMo:  momo,
		},
		Events: emitter,
	}
	if mail := utils.NewEmailService(cfg.Mail); mail != nil {
		deps.Notifier = mail
	}
	orders := ledger.NewOrderService(deps)
	users := ledger.NewUserService(store.Users, utils.NewTokenIssuer(cfg.JWTSecret)).WithOrders(store.Orders)
	engine := reconcile.New(store.Orders, orders.Converter(), vnpay, momo, emitter)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, middleware.NewAuth(utils.NewTokenIssuer(cfg.JWTSecret), users), routes.Controllers{
		Users:    controllers.NewUserController(users),
		Products: controllers.NewProductController(ledger.NewCatalogService(store.Products)),
		Carts:    controllers.NewCartController(ledger.NewCartService(store.Products, store.Carts)),
		Orders:   controllers.NewOrderController(orders),
		Payments: controllers.NewPaymentController(orders, engine, cfg.FrontendURL),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server is running", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
