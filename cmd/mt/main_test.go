package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aisuara/marketing-tracker/internal/config"
	"github.com/aisuara/marketing-tracker/internal/logging"
	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sheets"
)

// setupCLI points mt at a fresh data directory and the in-memory sheet.
func setupCLI(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	dataDir := filepath.Join(dir, "data")
	t.Setenv("MT_DATA_DIR", dataDir)
	t.Setenv("MT_SHEETS_BACKEND", config.SheetsMemory)
	noColor = true
	return dataDir
}

// resetFlags restores every flag to its default; cobra keeps values
// between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(append(args, "--no-color"))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCLI_ActivityLifecycle(t *testing.T) {
	setupCLI(t)

	out, errOut, err := runCLI(t, "", "activity", "add",
		"--prospect", "PT Maju Jaya", "--phone", "0812-3456-7890", "--date", "2024-05-01", "--type", "visit")
	if err != nil {
		t.Fatalf("activity add failed: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "Activity act-") || !strings.Contains(out, "added") {
		t.Errorf("activity add output = %q", out)
	}
	if errOut != "" {
		t.Errorf("activity add wrote to stderr: %q", errOut)
	}

	out, _, err = runCLI(t, "", "activity", "list", "--json")
	if err != nil {
		t.Fatalf("activity list failed: %v", err)
	}
	var acts []*schema.Activity
	if err := json.Unmarshal([]byte(out), &acts); err != nil {
		t.Fatalf("activity list --json is not JSON: %v\n%s", err, out)
	}
	if len(acts) != 1 {
		t.Fatalf("listed %d activities, want 1", len(acts))
	}
	act := acts[0]
	if act.ContactPhone != "081234567890" || act.Status != schema.StatusNew || act.MarketerUsername != "admin" {
		t.Errorf("stored activity = %+v", act)
	}

	if _, _, err := runCLI(t, "", "activity", "delete", act.ID); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("delete without a terminal should require --yes, got %v", err)
	}

	out, _, err = runCLI(t, "", "activity", "delete", act.ID, "--yes")
	if err != nil {
		t.Fatalf("activity delete failed: %v", err)
	}
	if !strings.Contains(out, act.ID) {
		t.Errorf("activity delete output = %q", out)
	}
}

func TestCLI_Sync(t *testing.T) {
	setupCLI(t)

	out, _, err := runCLI(t, "", "sync")
	if err != nil {
		t.Fatalf("sync failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sync complete: 4/4 tables succeeded") {
		t.Errorf("sync output = %q", out)
	}

	out, _, err = runCLI(t, "", "sync", "status")
	if err != nil {
		t.Fatalf("sync status failed: %v", err)
	}
	if strings.Contains(out, "Last full sync: never") {
		t.Errorf("last sync not recorded:\n%s", out)
	}

	if _, _, err := runCLI(t, "", "sync", "--table", "leads"); err == nil {
		t.Error("sync --table with an unknown table should fail")
	}
}

func TestCLI_Users(t *testing.T) {
	setupCLI(t)

	if _, errOut, err := runCLI(t, "rahasia123\n", "user", "add", "sari", "--name", "Sari"); err != nil {
		t.Fatalf("user add failed: %v\n%s", err, errOut)
	}

	out, _, err := runCLI(t, "rahasia123\n", "user", "login", "sari")
	if err != nil {
		t.Fatalf("user login failed: %v", err)
	}
	if !strings.Contains(out, "Logged in as sari (marketing)") {
		t.Errorf("user login output = %q", out)
	}

	if _, _, err := runCLI(t, "wrong\n", "user", "login", "sari"); err == nil {
		t.Error("login with a wrong password should fail")
	}

	if _, _, err := runCLI(t, "", "user", "delete", "admin", "--yes", "--as", "admin"); err == nil {
		t.Error("deleting the acting user should fail")
	}
}

func TestCLI_Config(t *testing.T) {
	setupCLI(t)

	if _, _, err := runCLI(t, "", "config", "set", "company_name=PT Contoh", "reminder_days_before=5"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out, _, err := runCLI(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "PT Contoh") {
		t.Errorf("config show output = %q", out)
	}
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{name: "single", args: []string{"theme=dark"}, want: map[string]string{"theme": "dark"}},
		{name: "value with equals", args: []string{"note=a=b"}, want: map[string]string{"note": "a=b"}},
		{name: "empty value", args: []string{"theme="}, want: map[string]string{"theme": ""}},
		{name: "missing equals", args: []string{"theme"}, wantErr: true},
		{name: "empty key", args: []string{"=dark"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAssignments() error = %v, wantErr %v", err, tt.wantErr)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestBuildGateway(t *testing.T) {
	logs := logging.NewFactory(logging.Options{Quiet: true})
	defer logs.Close()

	mem := &config.Settings{Sheets: config.SheetsSettings{Backend: config.SheetsMemory}}
	gw, err := buildGateway(mem, logs)
	if err != nil {
		t.Fatalf("buildGateway(memory) failed: %v", err)
	}
	if _, ok := gw.(*sheets.MemoryGateway); !ok {
		t.Errorf("buildGateway(memory) = %T", gw)
	}

	google := &config.Settings{Sheets: config.SheetsSettings{Backend: config.SheetsGoogle}}
	if _, err := buildGateway(google, logs); err == nil || !strings.Contains(err.Error(), "spreadsheet_id") {
		t.Errorf("buildGateway without spreadsheet id error = %v", err)
	}

	google.Sheets.SpreadsheetID = "sheet-1"
	gw, err = buildGateway(google, logs)
	if err != nil {
		t.Fatalf("buildGateway(google) failed: %v", err)
	}
	if _, ok := gw.(*sheets.GoogleGateway); !ok {
		t.Errorf("buildGateway(google) = %T", gw)
	}
}
