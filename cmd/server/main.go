package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/goalvault/goalvault-backend/internal/adapter/directory/memory"
	directorypg "github.com/goalvault/goalvault-backend/internal/adapter/directory/postgres"
	eventskafka "github.com/goalvault/goalvault-backend/internal/adapter/events/kafka"
	gatewayrest "github.com/goalvault/goalvault-backend/internal/adapter/gateway/rest"
	"github.com/goalvault/goalvault-backend/internal/adapter/httpapi"
	"github.com/goalvault/goalvault-backend/internal/domain"
	"github.com/goalvault/goalvault-backend/internal/usecase/orchestrator"
)

const (
	defaultAPIToken = "dev-token"
	defaultHTTPAddr = ":8080"

	// Pacing applied to the transient states so progress stays
	// perceptible in the dialog. UX only, not correctness.
	defaultStepDwell = 400 * time.Millisecond
)

func main() {
	// Load .env if present; real environments set vars directly.
	_ = godotenv.Load()

	// 1. Account Directory: postgres when configured, else an
	// in-memory directory seeded with demo accounts.
	directory, cleanup := buildDirectory()
	defer cleanup()

	// 2. Transfer Gateway client for the banking aggregator.
	gatewayURL := os.Getenv("GATEWAY_BASE_URL")
	if gatewayURL == "" {
		gatewayURL = "http://localhost:9090"
	}
	gateway := gatewayrest.NewClient(gatewayURL, os.Getenv("GATEWAY_API_TOKEN"))

	// 3. Orchestrator
	o := orchestrator.NewOrchestrator(directory, gateway)
	o.SetMinStepDwell(defaultStepDwell)

	// Optional Kafka sink for transition events.
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "transfer_state_changed"
		}
		publisher := eventskafka.NewPublisher(strings.Split(brokers, ","), topic)
		defer publisher.Close()
		o.Subscribe(publisher.Sink())
		log.Printf("Publishing transfer transitions to kafka topic %s", topic)
	}

	// 4. HTTP API
	apiToken := os.Getenv("API_TOKEN")
	if apiToken == "" {
		apiToken = defaultAPIToken
	}

	mux := http.NewServeMux()
	httpapi.NewHandler(o).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = defaultHTTPAddr
	}

	server := &http.Server{
		Addr:    addr,
		Handler: httpapi.AuthMiddleware(apiToken, mux),
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	waitForShutdown(server)
}

// buildDirectory selects the account directory implementation from the
// environment. Returns the directory and a cleanup func.
func buildDirectory() (domain.AccountDirectory, func()) {
	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" && os.Getenv("DB_HOST") != "" {
		// Build it from individual vars (Docker friendly)
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "goalvault"
		}

		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			os.Getenv("DB_HOST"), port, user, password, dbname)
	}

	if dbConnStr != "" {
		db, err := directorypg.NewDB(dbConnStr)
		if err != nil {
			log.Fatalf("Failed to connect to account directory database: %v", err)
		}
		log.Println("Using postgres account directory")
		return directorypg.NewAccountDirectory(db), func() { _ = db.Close() }
	}

	// Demo accounts for local runs without a database.
	directory := memory.NewAccountDirectory()
	for _, account := range demoAccounts() {
		directory.Put(account)
	}
	log.Println("Using in-memory account directory with demo accounts")
	return directory, func() {}
}

func demoAccounts() []domain.Account {
	return []domain.Account{
		{
			ID:       uuid.MustParse("6a1e8f1e-1111-4a62-9d3a-0a4f5b1c2d3e"),
			Type:     domain.AccountTypeChecking,
			Balance:  decimal.RequireFromString("2500.00"),
			Currency: "USD",
		},
		{
			ID:       uuid.MustParse("6a1e8f1e-2222-4a62-9d3a-0a4f5b1c2d3e"),
			Type:     domain.AccountTypeSavings,
			Balance:  decimal.RequireFromString("10000.00"),
			Currency: "USD",
		},
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")
}
