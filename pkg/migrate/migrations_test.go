package migrate

import (
	"path/filepath"
	"testing"
)

func TestMigrationsDirIsValid(t *testing.T) {
	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("resolving migrations dir: %v", err)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("empty dir should validate: %v", err)
	}

	path, err := CreateSQLMigration(dir, "add something")
	if err != nil {
		t.Fatalf("CreateSQLMigration failed: %v", err)
	}
	if filepath.Ext(path) != ".sql" {
		t.Fatalf("expected .sql migration, got %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
