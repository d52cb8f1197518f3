package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

func TestMemoryGateway_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)

	if err := gw.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	header := schema.UserTable.ColumnNames()
	row := make([]string, len(header))
	row[0] = "usr-1"
	row[1] = "budi"
	if err := gw.AppendRows(ctx, schema.UserTable, [][]string{row}); err != nil {
		t.Fatalf("AppendRows failed: %v", err)
	}

	grid := gw.Grid(schema.UserTable)
	if len(grid) != 2 {
		t.Fatalf("expected header and one row, got %v", grid)
	}
	if diff := cmp.Diff(header, grid[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	rows, err := gw.ReadAllRows(ctx, schema.UserTable)
	if err != nil {
		t.Fatalf("ReadAllRows failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "usr-1" || rows[0]["username"] != "budi" {
		t.Errorf("unexpected rows: %v", rows)
	}

	ids, err := gw.ReadColumn(ctx, schema.UserTable, "id")
	if err != nil {
		t.Fatalf("ReadColumn failed: %v", err)
	}
	if diff := cmp.Diff([]string{"usr-1"}, ids); diff != "" {
		t.Errorf("ReadColumn mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"append Users 1"}, gw.Calls()); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryGateway_Overwrite(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)
	gw.SetGrid(schema.ConfigTable, [][]string{{"Key", "Value"}, {"old", "1"}, {"older", "2"}})

	if err := gw.Overwrite(ctx, schema.ConfigTable, []string{"Key", "Value"}, [][]string{{"theme", "dark"}}); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	want := [][]string{{"Key", "Value"}, {"theme", "dark"}}
	if diff := cmp.Diff(want, gw.Grid(schema.ConfigTable)); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryGateway_EmptyRowsDropped(t *testing.T) {
	gw := NewMemoryGateway(nil)
	gw.SetGrid(schema.ConfigTable, [][]string{{"Key", "Value"}, {"", ""}, {"a", "1"}, {}})

	rows, err := gw.ReadAllRows(context.Background(), schema.ConfigTable)
	if err != nil {
		t.Fatalf("ReadAllRows failed: %v", err)
	}
	want := []Row{{"Key": "a", "Value": "1"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryGateway_ReadColumn(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)

	ids, err := gw.ReadColumn(ctx, schema.ActivityTable, "id")
	if err != nil {
		t.Fatalf("ReadColumn on empty tab failed: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", ids)
	}

	gw.SetGrid(schema.ActivityTable, [][]string{{"name"}, {"x"}})
	_, err = gw.ReadColumn(ctx, schema.ActivityTable, "id")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadColumn without id header = %v, want ErrMalformed", err)
	}
}

func TestMemoryGateway_ReadHeader(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)

	header, err := gw.ReadHeader(ctx, schema.FollowupTable)
	if err != nil {
		t.Fatalf("ReadHeader on empty tab failed: %v", err)
	}
	if header == nil || len(header) != 0 {
		t.Errorf("expected empty non-nil header, got %#v", header)
	}

	gw.SetGrid(schema.FollowupTable, [][]string{{"activity_id", "id", " "}, {"act-1", "fu-1"}})
	header, err = gw.ReadHeader(ctx, schema.FollowupTable)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if diff := cmp.Diff([]string{"activity_id", "id"}, header); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}

	gw.DropTab(schema.FollowupTable)
	if _, err := gw.ReadHeader(ctx, schema.FollowupTable); !IsNotFound(err) {
		t.Errorf("ReadHeader on missing tab = %v, want not found", err)
	}
}

func TestMemoryGateway_MissingTab(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)
	gw.DropTab(schema.FollowupTable)

	if _, err := gw.ReadAllRows(ctx, schema.FollowupTable); !IsNotFound(err) {
		t.Errorf("ReadAllRows = %v, want not found", err)
	}
	if err := gw.AppendRows(ctx, schema.FollowupTable, nil); !IsNotFound(err) {
		t.Errorf("AppendRows = %v, want not found", err)
	}

	missing, err := gw.VerifyTablesExist(ctx)
	if err != nil {
		t.Fatalf("VerifyTablesExist failed: %v", err)
	}
	if diff := cmp.Diff([]schema.Table{schema.FollowupTable}, missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}

	if err := gw.CreateTab(ctx, schema.FollowupTable); err != nil {
		t.Fatalf("CreateTab failed: %v", err)
	}
	grid := gw.Grid(schema.FollowupTable)
	if len(grid) != 1 {
		t.Errorf("created tab should hold only the header, got %v", grid)
	}
}

func TestMemoryGateway_CustomTabNames(t *testing.T) {
	names := DefaultTabNames()
	names[schema.ActivityTable] = "Aktivitas"
	gw := NewMemoryGateway(names)

	tabs, err := gw.Tabs(context.Background())
	if err != nil {
		t.Fatalf("Tabs failed: %v", err)
	}
	want := []string{"Aktivitas", "Config", "Followups", "Users"}
	if diff := cmp.Diff(want, tabs); diff != "" {
		t.Errorf("tabs mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryGateway_Fail(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway(nil)

	gw.Fail(OpAppend, schema.ActivityTable, errors.New("boom"))
	err := gw.AppendRows(ctx, schema.ActivityTable, [][]string{{"act-1"}})
	if !IsRetryable(err) {
		t.Errorf("plain injected error should be transient, got %v", err)
	}
	// Other tables are unaffected.
	if err := gw.AppendRows(ctx, schema.UserTable, [][]string{{"usr-1"}}); err != nil {
		t.Errorf("AppendRows on users failed: %v", err)
	}

	gw.Fail(OpConnect, schema.ActivityTable, newError(KindAuth, OpConnect, "", errors.New("revoked")))
	if err := gw.Connect(ctx); !IsFatal(err) {
		t.Errorf("Connect = %v, want auth error", err)
	}

	gw.Fail(OpAppend, schema.ActivityTable, nil)
	gw.Fail(OpConnect, schema.ActivityTable, nil)
	if err := gw.Connect(ctx); err != nil {
		t.Errorf("Connect after clearing failure: %v", err)
	}
	if err := gw.AppendRows(ctx, schema.ActivityTable, [][]string{{"act-1"}}); err != nil {
		t.Errorf("AppendRows after clearing failure: %v", err)
	}
	if gw.Connects() != 1 {
		t.Errorf("Connects() = %d, want 1", gw.Connects())
	}
}

func TestTabNames_Fallback(t *testing.T) {
	names := TabNames{schema.UserTable: ""}
	if got := names.Tab(schema.UserTable); got != "Users" {
		t.Errorf("Tab(users) = %q, want Users", got)
	}
	if got := names.Tab(schema.ConfigTable); got != "Config" {
		t.Errorf("Tab(config) = %q, want Config", got)
	}
}
