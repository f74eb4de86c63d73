package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ignite/adoptimizer/internal/repository/sqlstore"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = sqlstore.DriverPostgres
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := sqlstore.Open(ctx, driver, dsn, sqlstore.Options{})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer store.Close()
	log.Println("Connected to database")

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var n int
	if err := store.DB().GetContext(ctx, &n, "SELECT COUNT(*) FROM audits"); err != nil {
		log.Fatalf("verify: %v", err)
	}
	fmt.Printf("audits table ready (%d rows)\n", n)
	log.Println("Migrations complete")
}
