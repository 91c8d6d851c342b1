package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB подключение к тестовой базе для интеграционных тестов.
// База берется из TEST_DATABASE_URL; без нее тест пропускается.
type TestDB struct {
	Pool *pgxpool.Pool
	dsn  string
}

func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	return &TestDB{Pool: pool, dsn: dsn}
}

func (db *TestDB) RunMigrations(t *testing.T) {
	t.Helper()

	_, sourceFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate migrations directory")
	}
	migrationsPath := filepath.Join(filepath.Dir(sourceFile), "..", "..", "migrations")

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), db.dsn)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to run migrations: %v", err)
	}
}

// CleanupDB очищает все таблицы между тестами, сохраняя схему
func (db *TestDB) CleanupDB(t *testing.T) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		"TRUNCATE alerts, fraud_tags, ledger_entries, category_limits, accounts CASCADE")
	if err != nil {
		t.Fatalf("failed to clean up test database: %v", err)
	}
}

func (db *TestDB) TeardownTestDB() {
	db.Pool.Close()
}

// SeedAccount вставляет счет с заданным балансом в минимальных единицах
func (db *TestDB) SeedAccount(t *testing.T, id, username string, balance int64) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO accounts (id, username, email, password_hash, currency, balance)
		 VALUES ($1, $2, $3, 'x', 'USD', $4)`,
		id, username, username+"@example.com", balance)
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
}
