package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"assetdesk.org/internal/config"
	"assetdesk.org/internal/migrate"
	"assetdesk.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn        = flag.String("dsn", "", "PostgreSQL URL (defaults to the ASSETDESK_DATABASE_* settings)")
		seedsTable = flag.String("seeds-table", "", "Seed bookkeeping table")
		timeout    = flag.Duration("timeout", 60*time.Second, "Overall deadline")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [flags] up|down|status|seed")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dsn == "" {
		*dsn = dsnFromConfig()
	}
	if *dsn == "" {
		log.Fatal("missing DSN: provide -dsn or ASSETDESK_DATABASE_DSN")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url, err := migrate.URL(*dsn)
	if err != nil {
		log.Fatal(err)
	}
	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), url, migrate.WithSeedsTable(*seedsTable))

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = mgr.Status(ctx)
		if err == nil {
			fmt.Printf("version %d", version)
			if dirty {
				fmt.Print(" (dirty)")
			}
			fmt.Println()
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func dsnFromConfig() string {
	cfg, err := config.Read()
	if err != nil {
		log.Fatal(err)
	}
	return cfg.DSN()
}
