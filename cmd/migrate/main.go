package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"it-network/internal/infrastructure/config"
	"it-network/internal/infrastructure/db"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dir := flag.String("dir", "db/migrations", "path to migrations directory")
	table := flag.String("table", defaultTable, "table recording applied migrations")
	dryRun := flag.Bool("dry-run", false, "list pending migrations without applying them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath, *dir, *table, *dryRun); err != nil {
		log.Printf("migration 失敗: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, dir, table string, dryRun bool) error {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return fmt.Errorf("讀取組態失敗: %w", err)
	}
	if cfg.DB.DSN == "" {
		return errors.New("config.db.dsn 未設定，無法執行 migration")
	}

	files, err := loadMigrations(dir)
	if err != nil {
		return err
	}

	// lib/pq 由 migrate.go 匯入並註冊 "postgres" driver
	conn, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("連線資料庫失敗: %w", err)
	}
	defer conn.Close()
	if err := db.Ready(ctx, conn); err != nil {
		return err
	}

	m := &migrator{db: conn, table: table, logger: log.Default()}
	if dryRun {
		pending, err := m.pending(ctx, files)
		if err != nil {
			return err
		}
		for _, f := range pending {
			fmt.Printf("pending: %s\n", f.Version)
		}
		fmt.Printf("%d pending migration(s)\n", len(pending))
		return nil
	}

	n, err := m.apply(ctx, files)
	if err != nil {
		return err
	}
	fmt.Printf("Migration 完成，套用 %d 個檔案\n", n)
	return nil
}
