package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"storefront/handlers"
	"storefront/internal/auth"
	"storefront/internal/carts"
	"storefront/internal/consul"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/products"
	"storefront/internal/shipping"
	"storefront/internal/stores"
	"storefront/internal/stores/jsondb"
	"storefront/internal/stores/kafka"
	"storefront/internal/stores/postgres"
	"storefront/internal/users"
	"storefront/pkg/logkey"

	"github.com/joho/godotenv"
)

const (
	defaultAdminEmail    = "admin@chenki.com"
	defaultAdminPassword = "admin123"
)

func main() {
	setupSlog()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	if err := startApp(); err != nil {
		slog.Error("application startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))
}

func startApp() error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("closing store", slog.String(logkey.ERROR, err.Error()))
		}
	}()

	jwtSecret := os.Getenv("JWT_SECRET")
	a, err := auth.NewConf(jwtSecret)
	if err != nil {
		return err
	}

	u, err := users.NewConf(store)
	if err != nil {
		return err
	}
	p, err := products.NewConf(store)
	if err != nil {
		return err
	}
	ca, err := carts.NewConf(store)
	if err != nil {
		return err
	}
	o, err := orders.NewConf(store)
	if err != nil {
		return err
	}
	sh, err := shipping.NewConf(store)
	if err != nil {
		return err
	}

	gw, err := payment.NewStripeGateway(os.Getenv("STRIPE_TEST_KEY"))
	if err != nil {
		return err
	}

	// Kafka is optional; without a broker the order-paid events are skipped.
	var producer payment.Producer
	kafkaHost := os.Getenv("KAFKA_HOST")
	kafkaPort := os.Getenv("KAFKA_PORT")
	if kafkaHost != "" && kafkaPort != "" {
		k, err := kafka.NewConf(kafkaHost, kafkaPort)
		if err != nil {
			slog.Error("kafka unavailable, continuing without events", slog.String(logkey.ERROR, err.Error()))
		} else {
			defer k.Close()
			producer = k
		}
	}

	pay, err := payment.NewConf(store, gw, producer)
	if err != nil {
		return err
	}

	seedData(ctx, u, p)

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return err
	}

	api, err := handlers.API(a, u, p, ca, o, pay, sh, uploadDir)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	registerWithConsul(port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      api,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server started", slog.String("port", port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return err
		}
	}
	return nil
}

// openStore selects the persistence backend via STORE_BACKEND: "postgres"
// or the file-backed default.
func openStore() (stores.Store, error) {
	if os.Getenv("STORE_BACKEND") == "postgres" {
		db, err := postgres.OpenDB()
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return jsondb.Open(dataDir)
}

// seedData guarantees an admin account and, on an empty catalog, a couple of
// sample products. Seeding failures are logged, not fatal.
func seedData(ctx context.Context, u *users.Conf, p *products.Conf) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = defaultAdminEmail
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = defaultAdminPassword
	}

	created, err := u.EnsureAdmin(ctx, adminEmail, "Admin", adminPassword)
	if err != nil {
		slog.Error("seeding admin user", slog.String(logkey.ERROR, err.Error()))
	} else if created {
		slog.Info("admin user created", slog.String("email", adminEmail))
	}

	n, err := p.SeedSamples(ctx)
	if err != nil {
		slog.Error("seeding sample products", slog.String(logkey.ERROR, err.Error()))
	} else if n > 0 {
		slog.Info("sample products seeded", slog.Int("count", n))
	}
}

// registerWithConsul is best effort; the API serves without registration.
func registerWithConsul(port string) {
	if os.Getenv("CONSUL_HTTP_ADDR") == "" {
		return
	}

	client, err := consul.NewClient()
	if err != nil {
		slog.Error("consul client", slog.String(logkey.ERROR, err.Error()))
		return
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		slog.Error("invalid port for consul registration", slog.String("port", port))
		return
	}

	address := os.Getenv("SERVICE_ADDRESS")
	if address == "" {
		address = "localhost"
	}

	if err := consul.RegisterService(client, "storefront-"+port, "storefront", address, portNum); err != nil {
		slog.Error("consul registration", slog.String(logkey.ERROR, err.Error()))
	}
}
