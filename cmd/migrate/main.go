package main

import (
	"context"
	"log"
	"os"

	"gobfda/adapters/filestore"
	"gobfda/adapters/sqlstore"
)

// migrate copies every result of a results directory into a SQL database.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <results_dir>")
	}

	databaseURL := os.Args[1]
	resultsDir := os.Args[2]
	ctx := context.Background()

	log.Printf("Starting migration from %s to %s database", resultsDir, sqlstore.DriverFor(databaseURL))

	files, err := filestore.New(resultsDir)
	if err != nil {
		log.Fatalf("Failed to open results directory: %v", err)
	}
	db, err := sqlstore.Open(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	summaries, err := files.List(ctx, 0)
	if err != nil {
		log.Fatalf("Failed to list results: %v", err)
	}

	migrated := 0
	for _, summary := range summaries {
		result, err := files.Get(ctx, summary.ID)
		if err != nil {
			log.Printf("Skipping %s: %v", summary.ID, err)
			continue
		}
		if err := db.Save(ctx, result); err != nil {
			log.Printf("Failed to migrate %s: %v", summary.ID, err)
			continue
		}
		migrated++
	}
	log.Printf("Migration complete: %d of %d results", migrated, len(summaries))
}
