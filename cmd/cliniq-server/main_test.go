package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()

	want := map[string]bool{"up": false, "status": false, "create": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("migrate command missing %q subcommand", name)
		}
	}
}

func TestMigrateCmd_DirFlag(t *testing.T) {
	cmd := migrateCmd()
	flag := cmd.PersistentFlags().Lookup("dir")
	if flag == nil {
		t.Fatal("expected --dir flag on migrate command")
	}
	if flag.DefValue != defaultMigrationsDir {
		t.Errorf("expected default %q, got %q", defaultMigrationsDir, flag.DefValue)
	}
}

func TestCreateMigrationFile_NextVersion(t *testing.T) {
	dir := t.TempDir()
	seed := []string{"001_patients.sql", "002_indexes.sql"}
	for _, name := range seed {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0644); err != nil {
			t.Fatalf("seed migration: %v", err)
		}
	}

	path, err := createMigrationFile(dir, "add notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "003_add_notes.sql" {
		t.Errorf("expected 003_add_notes.sql, got %s", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestCreateMigrationFile_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	path, err := createMigrationFile(dir, "patients")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(path, "001_patients.sql") {
		t.Errorf("expected first version 001, got %s", path)
	}
}

func TestServeCmd_Use(t *testing.T) {
	if got := serveCmd().Use; got != "serve" {
		t.Errorf("expected serve, got %s", got)
	}
}
