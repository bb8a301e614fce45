package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/lib/pq"
)

const defaultTable = "schema_migrations"

// migration 是一個 .sql 檔，Version 為檔名。
type migration struct {
	Version string
	SQL     string
}

// loadMigrations 依檔名排序讀取 dir 下所有 .sql。
func loadMigrations(dir string) ([]migration, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析 migrations 路徑失敗: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("migrations 目錄不存在: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(absDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("讀取 migrations 失敗: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("找不到任何 .sql migration 檔案")
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("讀取檔案 %s 失敗: %w", f, err)
		}
		out = append(out, migration{Version: filepath.Base(f), SQL: string(raw)})
	}
	return out, nil
}

// migrator 把已套用的檔名記在 table，重跑時略過。
type migrator struct {
	db     *sql.DB
	table  string
	logger *log.Logger
}

func (m *migrator) ensureTable(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, pq.QuoteIdentifier(m.table))
	if _, err := m.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("建立 %s 失敗: %w", m.table, describe(err))
	}
	return nil
}

func (m *migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s", pq.QuoteIdentifier(m.table)))
	if err != nil {
		return nil, fmt.Errorf("讀取已套用 migration 失敗: %w", describe(err))
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (m *migrator) pending(ctx context.Context, files []migration) ([]migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, f := range files {
		if !done[f.Version] {
			out = append(out, f)
		}
	}
	return out, nil
}

// apply 逐檔在 transaction 內執行並記錄版本，回傳實際套用數。
func (m *migrator) apply(ctx context.Context, files []migration) (int, error) {
	todo, err := m.pending(ctx, files)
	if err != nil {
		return 0, err
	}
	if len(todo) == 0 {
		m.logger.Printf("沒有待套用的 migration")
		return 0, nil
	}
	insert := fmt.Sprintf("INSERT INTO %s (version) VALUES ($1)", pq.QuoteIdentifier(m.table))
	for i, f := range todo {
		m.logger.Printf("執行 migration: %s", f.Version)
		if err := m.applyOne(ctx, f, insert); err != nil {
			return i, err
		}
	}
	return len(todo), nil
}

func (m *migrator) applyOne(ctx context.Context, f migration, insert string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, f.SQL); err != nil {
		return fmt.Errorf("執行 %s 失敗: %w", f.Version, describe(err))
	}
	if _, err := tx.ExecContext(ctx, insert, f.Version); err != nil {
		return fmt.Errorf("記錄 %s 失敗: %w", f.Version, describe(err))
	}
	return tx.Commit()
}

// describe 補上 Postgres 錯誤碼與細節。
func describe(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Detail != "" {
		return fmt.Errorf("%w (code %s, %s)", err, pqErr.Code, pqErr.Detail)
	}
	return fmt.Errorf("%w (code %s)", err, pqErr.Code)
}
