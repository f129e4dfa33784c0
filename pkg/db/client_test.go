package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/notelift/notelift-backend/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to discard the insert, got %d records", count)
	}
}

func TestNewVerifiesConnectivity(t *testing.T) {
	ctx := context.Background()

	client, err := New(ctx, config.DBConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "db.sqlite"),
	}, nil)
	if err != nil {
		t.Fatalf("New failed for reachable datasource: %v", err)
	}
	defer client.Close()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	_, err = New(ctx, config.DBConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "missing", "db.sqlite"),
	}, nil)
	if err == nil {
		t.Fatal("expected New to fail for an unreachable datasource")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error should not be a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: license_keys.key"), "") {
		t.Fatal("sqlite unique violation not detected")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_license_keys_key"`), "idx_license_keys_key") {
		t.Fatal("postgres unique violation not detected")
	}
}
