package schema

import (
	"fmt"
	"strings"
)

// Table identifies one of the mirrored tables. The set is closed.
type Table int

const (
	ActivityTable Table = iota
	FollowupTable
	UserTable
	ConfigTable
)

// Kind classifies how a column's values are converted to and from sheet text.
type Kind int

const (
	KindPlain Kind = iota
	KindIdentifier
	KindDate
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	default:
		return "plain"
	}
}

// Column describes one column of a table.
type Column struct {
	Name string
	Kind Kind
	// Phone marks plain columns that hold phone numbers.
	Phone bool
}

// ===== Column Names =====

const (
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
	ColStatus    = "status"

	ColConfigKey   = "Key"
	ColConfigValue = "Value"
)

var columns = map[Table][]Column{
	ActivityTable: {
		{Name: ColID, Kind: KindIdentifier},
		{Name: "marketer_username", Kind: KindIdentifier},
		{Name: "prospect_name"},
		{Name: "prospect_location"},
		{Name: "contact_person"},
		{Name: "contact_position"},
		{Name: "contact_phone", Phone: true},
		{Name: "contact_email"},
		{Name: "activity_date", Kind: KindDate},
		{Name: "activity_type"},
		{Name: "description"},
		{Name: ColStatus},
		{Name: ColCreatedAt, Kind: KindTimestamp},
		{Name: ColUpdatedAt, Kind: KindTimestamp},
	},
	FollowupTable: {
		{Name: ColID, Kind: KindIdentifier},
		{Name: "activity_id", Kind: KindIdentifier},
		{Name: "marketer_username", Kind: KindIdentifier},
		{Name: "followup_date", Kind: KindDate},
		{Name: "notes"},
		{Name: "next_action"},
		{Name: "next_followup_date", Kind: KindDate},
		{Name: "interest_level"},
		{Name: "status_update"},
		{Name: ColCreatedAt, Kind: KindTimestamp},
	},
	UserTable: {
		{Name: ColID, Kind: KindIdentifier},
		{Name: "username", Kind: KindIdentifier},
		{Name: "password_hash"},
		{Name: "name"},
		{Name: "role"},
		{Name: "email"},
		{Name: ColCreatedAt, Kind: KindTimestamp},
	},
	ConfigTable: {
		{Name: ColConfigKey, Kind: KindIdentifier},
		{Name: ColConfigValue},
	},
}

// Tables returns every table in sync order.
func Tables() []Table {
	return []Table{ActivityTable, FollowupTable, UserTable, ConfigTable}
}

// ParseTable resolves a table by name. The legacy name
// "marketing_activities" resolves to ActivityTable.
func ParseTable(name string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "activities", "marketing_activities":
		return ActivityTable, nil
	case "followups":
		return FollowupTable, nil
	case "users":
		return UserTable, nil
	case "config":
		return ConfigTable, nil
	}
	return 0, fmt.Errorf("unknown table %q (want activities, followups, users or config)", name)
}

// String returns the canonical table name.
func (t Table) String() string {
	switch t {
	case ActivityTable:
		return "activities"
	case FollowupTable:
		return "followups"
	case UserTable:
		return "users"
	case ConfigTable:
		return "config"
	}
	return fmt.Sprintf("table(%d)", int(t))
}

// DefaultTab returns the tab title used when no override is configured.
func (t Table) DefaultTab() string {
	switch t {
	case ActivityTable:
		return "Activities"
	case FollowupTable:
		return "Followups"
	case UserTable:
		return "Users"
	case ConfigTable:
		return "Config"
	}
	return ""
}

// Keyed reports whether rows of the table carry an id column. Unkeyed
// tables (config) can only be mirrored by full overwrite.
func (t Table) Keyed() bool {
	return t != ConfigTable
}

// Columns returns the ordered column list of the table.
func (t Table) Columns() []Column {
	cols := columns[t]
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// ColumnNames returns the ordered column names, i.e. the sheet header row.
func (t Table) ColumnNames() []string {
	cols := columns[t]
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range columns[t] {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Kind returns the kind of the named column, KindPlain for unknown names.
func (t Table) Kind(column string) Kind {
	c, _ := t.Column(column)
	return c.Kind
}

// IDPrefix returns the prefix of generated ids for the table.
func (t Table) IDPrefix() string {
	switch t {
	case ActivityTable:
		return "act"
	case FollowupTable:
		return "fu"
	case UserTable:
		return "usr"
	}
	return ""
}
