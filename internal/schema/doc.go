// Package schema defines the tables, columns and typed records of the
// marketing tracker.
//
// # Overview
//
// Four tables are mirrored to the spreadsheet, each as one tab:
//
//   - activities - marketing visits and calls, keyed by id (act-xxxxxxxx)
//   - followups  - follow-up notes for an activity, keyed by id (fu-xxxxxxxx)
//   - users      - marketers and admins, keyed by id (usr-xxxxxxxx)
//   - config     - application settings as Key/Value pairs, no id
//
// The column order of each table is fixed. The sheet header row is written
// in exactly this order and every data row follows it:
//
//	activities: id, marketer_username, prospect_name, prospect_location,
//	            contact_person, contact_position, contact_phone, contact_email,
//	            activity_date, activity_type, description, status,
//	            created_at, updated_at
//	followups:  id, activity_id, marketer_username, followup_date, notes,
//	            next_action, next_followup_date, interest_level,
//	            status_update, created_at
//	users:      id, username, password_hash, name, role, email, created_at
//	config:     Key, Value
//
// # Column Kinds
//
// Every column has a Kind that drives value conversion in package format:
// dates are YYYY-MM-DD, timestamps are YYYY-MM-DD HH:MM:SS in civil time,
// identifiers are always kept as text. contact_phone is a plain column
// flagged as a phone number so its digits survive the spreadsheet.
//
// # Records
//
// Activity, Followup and User implement Record. Values are kept as text,
// the same shape they have in the YAML data files and in the sheet:
//
//	act := &schema.Activity{
//	    ID:           schema.NewID(schema.ActivityTable),
//	    ProspectName: "PT Maju",
//	    Status:       schema.StatusNew,
//	}
//	row := schema.Row(act) // ordered by ActivityTable.ColumnNames()
//
// FromValues goes the other way, building a typed record from a column map
// read off a sheet.
package schema
