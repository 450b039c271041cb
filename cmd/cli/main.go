package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corebank/ledgersvc/internal/infrastructure/config"
	"github.com/corebank/ledgersvc/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgersvc-cli",
		Short: "Ledger service CLI tool",
		Long:  `A command line interface for operating the ledger service API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger service API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Outbox commands
	outboxCmd := &cobra.Command{
		Use:   "outbox",
		Short: "Event outbox operations",
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List unprocessed outbox events",
		Run: func(cmd *cobra.Command, args []string) {
			listPendingEvents()
		},
	}

	outboxCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(outboxCmd)

	// Account commands
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Chart-of-accounts operations",
	}

	subtreeCmd := &cobra.Command{
		Use:   "subtree [account-id]",
		Short: "Print an account and all of its descendants",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printSubtree(args[0])
		},
	}

	accountCmd.AddCommand(subtreeCmd)
	rootCmd.AddCommand(accountCmd)

	// Migration commands
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigrations(false)
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Run: func(cmd *cobra.Command, args []string) {
			runMigrations(true)
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func listPendingEvents() {
	body := get("/api/v1/outbox/pending")

	var events []map[string]any
	if err := json.Unmarshal(body, &events); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No pending events")
		return
	}

	for _, e := range events {
		fmt.Printf("%s  %s  %s/%s  retries=%v\n", e["id"], e["event_type"], e["aggregate_type"], e["aggregate_id"], e["retry_count"])
		if lastError, ok := e["last_error"].(string); ok && lastError != "" {
			fmt.Printf("    last error: %s\n", lastError)
		}
	}
}

func printSubtree(accountID string) {
	body := get("/api/v1/accounts/" + accountID + "/subtree")

	var accounts []map[string]any
	if err := json.Unmarshal(body, &accounts); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	for _, a := range accounts {
		fmt.Printf("%s  %s  %s (%s)\n", a["id"], a["code"], a["name"], a["type"])
	}
}

func get(path string) []byte {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}

func runMigrations(down bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if down {
		err = postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath)
	} else {
		err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
	}
	if err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration complete")
}
