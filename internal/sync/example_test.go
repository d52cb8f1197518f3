package sync_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sheets"
	"github.com/aisuara/marketing-tracker/internal/store"
	"github.com/aisuara/marketing-tracker/internal/sync"
)

// This example pushes a new activity to an in-memory spreadsheet twice.
// The second incremental sync finds the id in the sheet and appends nothing.
func ExampleEngine_SyncTable() {
	ctx := context.Background()
	quiet := log.New(io.Discard, "", 0)

	dir, err := os.MkdirTemp("", "mt-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	st, err := store.OpenFileStore(dir, store.Options{Logger: quiet})
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	err = st.Upsert(ctx, &schema.Activity{ID: "act-1", ProspectName: "Acme", Status: schema.StatusNew})
	if err != nil {
		log.Fatal(err)
	}

	engine := sync.New(st, sheets.NewMemoryGateway(nil), sync.Options{Logger: quiet})
	for i := 0; i < 2; i++ {
		report, err := engine.SyncTable(ctx, schema.ActivityTable, sync.Incremental)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(report.Summary())
	}
	// Output:
	// activities: appended 1 new row (0 already in sheet)
	// activities: up to date (1 row in sheet)
}

// This example shows the per-table message of a full overwrite sync.
// Note: This is for documentation only and won't run as a test.
func ExampleEngine_SyncAll() {
	ctx := context.Background()

	st, err := store.Open(ctx, store.BackendYAML, "data", "", store.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	gw, err := sheets.NewGoogleGateway(sheets.GoogleConfig{
		SpreadsheetID: "your-spreadsheet-id",
		Credentials:   sheets.CredentialSource{SecretsFile: ".streamlit/secrets.toml", CredentialsFile: "credentials.json"},
	})
	if err != nil {
		log.Fatal(err)
	}

	engine := sync.New(st, gw, sync.Options{})
	agg, err := engine.SyncAll(ctx, sync.Overwrite)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(agg.Message())
}
