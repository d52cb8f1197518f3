package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLegacy_RenamesActivitiesKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ActivitiesFile, `activities:
  - id: act-00000001
    prospect_name: PT Maju
    status: baru
`)

	result, err := Legacy(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if result.KeysRenamed != 1 {
		t.Errorf("KeysRenamed = %d, want 1", result.KeysRenamed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read migrated file: %v", err)
	}
	var doc map[string][]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse migrated file: %v", err)
	}
	if _, ok := doc["activities"]; ok {
		t.Error("legacy key still present")
	}
	acts := doc["marketing_activities"]
	if len(acts) != 1 || acts[0]["id"] != "act-00000001" {
		t.Errorf("unexpected migrated content: %v", doc)
	}
}

func TestLegacy_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ActivitiesFile, "activities: []\n")

	if _, err := Legacy(Options{DataDir: dir}); err != nil {
		t.Fatalf("first Legacy failed: %v", err)
	}
	result, err := Legacy(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("second Legacy failed: %v", err)
	}
	if result.Changed() {
		t.Errorf("second run changed data: %+v", result)
	}
}

func TestLegacy_KeepsNewKeyWhenBothPresent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ActivitiesFile, `activities:
  - id: old
marketing_activities:
  - id: new
`)

	result, err := Legacy(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if result.KeysRenamed != 0 {
		t.Errorf("KeysRenamed = %d, want 0", result.KeysRenamed)
	}
}

func TestLegacy_BackfillsUserIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, UsersFile, `users:
  - username: admin
    role: superadmin
  - id: usr-12345678
    username: budi
`)

	result, err := Legacy(Options{DataDir: dir, Backup: true})
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if result.UserIDsAssigned != 1 {
		t.Errorf("UserIDsAssigned = %d, want 1", result.UserIDsAssigned)
	}
	if len(result.Backups) != 1 {
		t.Fatalf("expected one backup, got %v", result.Backups)
	}
	if _, err := os.Stat(result.Backups[0]); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	data, _ := os.ReadFile(path)
	var doc struct {
		Users []map[string]string `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse users: %v", err)
	}
	if !strings.HasPrefix(doc.Users[0]["id"], "usr-") {
		t.Errorf("admin id = %q, want usr- prefix", doc.Users[0]["id"])
	}
	if doc.Users[1]["id"] != "usr-12345678" {
		t.Errorf("existing id changed to %q", doc.Users[1]["id"])
	}
}

func TestLegacy_DryRun(t *testing.T) {
	dir := t.TempDir()
	content := "activities: []\n"
	path := writeFile(t, dir, ActivitiesFile, content)

	result, err := Legacy(Options{DataDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if result.KeysRenamed != 1 || result.FilesWritten != 0 {
		t.Errorf("unexpected dry run result: %+v", result)
	}
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Errorf("dry run modified file: %q", data)
	}
}

func TestLegacy_MissingFiles(t *testing.T) {
	result, err := Legacy(Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}
	if result.Changed() {
		t.Errorf("expected no changes, got %+v", result)
	}
}
