//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"staybook/internal/domain"
	mysqlrepo "staybook/internal/storage/mysql"
)

// ---------- small helpers ----------
func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "..", "migrations")
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	return dir
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=staybook",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/staybook?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_BookingLifecycle(t *testing.T) {
	repo := mysqlrepo.New(startMySQL(t))
	ctx := context.Background()

	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	b := domain.Booking{
		ID:           "2f0e1c44-8c1f-4a53-9d76-1b1a8c0d0001",
		UserID:       "google-alice",
		UserEmail:    "alice@example.com",
		HotelID:      "node/123",
		HotelName:    "Lima Park Hotel",
		RoomType:     "deluxe",
		NightlyPrice: 2500,
		Currency:     "PHP",
		CheckIn:      day("2025-03-20"),
		CheckOut:     day("2025-03-23"),
		Guests:       2,
		TotalPrice:   11250,
		Status:       domain.BookingConfirmed,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	older := b
	older.ID = "2f0e1c44-8c1f-4a53-9d76-1b1a8c0d0000"
	older.CreatedAt, older.UpdatedAt = created.Add(-time.Hour), created.Add(-time.Hour)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}

	got, err := repo.Get(ctx, "google-alice", b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.HotelName != b.HotelName || !got.CheckIn.Equal(b.CheckIn) || got.TotalPrice != 11250 || got.HotelLocation != "" {
		t.Fatalf("unexpected booking: %+v", got)
	}
	if _, err := repo.Get(ctx, "google-bob", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign Get: %v", err)
	}

	list, err := repo.ListByUser(ctx, "google-alice")
	if err != nil || len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("ListByUser: %v %+v", err, list)
	}

	b.Guests, b.RoomType, b.TotalPrice = 3, "suite", 15000
	b.UpdatedAt = created.Add(time.Minute)
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = repo.Get(ctx, "google-alice", b.ID)
	if got.Guests != 3 || got.RoomType != "suite" || got.TotalPrice != 15000 {
		t.Fatalf("after update: %+v", got)
	}

	if err := repo.Delete(ctx, "google-bob", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign Delete: %v", err)
	}
	if err := repo.Delete(ctx, "google-alice", b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "google-alice", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
}
