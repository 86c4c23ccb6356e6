package main

import (
	"flag"
	"fmt"
	"os"

	"leadflow/config"
	"leadflow/pkg/database"
)

const usage = `
leadflow database tool

Usage:
  migrate [command]

Commands:
  up       Apply the schema for all import pipeline tables
  status   Check database connectivity and table presence

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	database.Connect(cfg)

	switch flag.Arg(0) {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	default:
		fmt.Printf("unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	fmt.Println("running migrations...")
	if err := database.Migrate(); err != nil {
		fmt.Printf("migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations completed")
}

func showStatus() {
	if err := database.HealthCheck(); err != nil {
		fmt.Printf("database connection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("database connection: ok")

	tables := []string{"upload_jobs", "upload_chunks", "processing_batches", "validated_rows", "leads"}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			fmt.Printf("table %-20s check failed: %v\n", table, err)
			continue
		}
		if exists {
			fmt.Printf("table %-20s exists\n", table)
		} else {
			fmt.Printf("table %-20s missing\n", table)
		}
	}
}
