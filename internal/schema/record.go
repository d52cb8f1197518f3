package schema

import (
	"fmt"
	"strings"
)

// Record is a typed row of a keyed table.
type Record interface {
	// Table returns the table the record belongs to.
	Table() Table
	// RecordID returns the record's id.
	RecordID() string
	// Values returns the record as column name -> text.
	Values() map[string]string
	// Validate checks the record against the table's rules.
	Validate() error
}

// Role of a user account.
const (
	RoleSuperadmin = "superadmin"
	RoleMarketing  = "marketing"
)

// Activity is one marketing activity (visit, call, presentation...).
type Activity struct {
	// ===== Core Identification =====
	ID               string `yaml:"id" json:"id"`
	MarketerUsername string `yaml:"marketer_username" json:"marketer_username"`

	// ===== Prospect =====
	ProspectName     string `yaml:"prospect_name" json:"prospect_name"`
	ProspectLocation string `yaml:"prospect_location" json:"prospect_location"`
	ContactPerson    string `yaml:"contact_person" json:"contact_person"`
	ContactPosition  string `yaml:"contact_position" json:"contact_position"`
	ContactPhone     string `yaml:"contact_phone" json:"contact_phone"`
	ContactEmail     string `yaml:"contact_email" json:"contact_email"`

	// ===== Activity =====
	ActivityDate string `yaml:"activity_date" json:"activity_date"` // YYYY-MM-DD
	ActivityType string `yaml:"activity_type" json:"activity_type"`
	Description  string `yaml:"description" json:"description"`
	Status       Status `yaml:"status" json:"status"`

	// ===== Timestamps (civil time, YYYY-MM-DD HH:MM:SS) =====
	CreatedAt string `yaml:"created_at" json:"created_at"`
	UpdatedAt string `yaml:"updated_at" json:"updated_at"`
}

func (a *Activity) Table() Table     { return ActivityTable }
func (a *Activity) RecordID() string { return a.ID }

func (a *Activity) Values() map[string]string {
	return map[string]string{
		"id":                a.ID,
		"marketer_username": a.MarketerUsername,
		"prospect_name":     a.ProspectName,
		"prospect_location": a.ProspectLocation,
		"contact_person":    a.ContactPerson,
		"contact_position":  a.ContactPosition,
		"contact_phone":     a.ContactPhone,
		"contact_email":     a.ContactEmail,
		"activity_date":     a.ActivityDate,
		"activity_type":     a.ActivityType,
		"description":       a.Description,
		"status":            string(a.Status),
		"created_at":        a.CreatedAt,
		"updated_at":        a.UpdatedAt,
	}
}

// Validate checks if the Activity has valid field values.
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid status %q", a.Status)
	}
	return nil
}

// Followup is a follow-up note attached to an activity.
type Followup struct {
	ID               string `yaml:"id" json:"id"`
	ActivityID       string `yaml:"activity_id" json:"activity_id"`
	MarketerUsername string `yaml:"marketer_username" json:"marketer_username"`

	FollowupDate     string `yaml:"followup_date" json:"followup_date"`
	Notes            string `yaml:"notes" json:"notes"`
	NextAction       string `yaml:"next_action" json:"next_action"`
	NextFollowupDate string `yaml:"next_followup_date" json:"next_followup_date"`
	InterestLevel    string `yaml:"interest_level" json:"interest_level"`
	StatusUpdate     Status `yaml:"status_update" json:"status_update"`

	CreatedAt string `yaml:"created_at" json:"created_at"`
}

func (f *Followup) Table() Table     { return FollowupTable }
func (f *Followup) RecordID() string { return f.ID }

func (f *Followup) Values() map[string]string {
	return map[string]string{
		"id":                 f.ID,
		"activity_id":        f.ActivityID,
		"marketer_username":  f.MarketerUsername,
		"followup_date":      f.FollowupDate,
		"notes":              f.Notes,
		"next_action":        f.NextAction,
		"next_followup_date": f.NextFollowupDate,
		"interest_level":     f.InterestLevel,
		"status_update":      string(f.StatusUpdate),
		"created_at":         f.CreatedAt,
	}
}

// Validate checks if the Followup has valid field values. status_update is
// optional, but when present it must be a known status.
func (f *Followup) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(f.ActivityID) == "" {
		return fmt.Errorf("activity_id is required")
	}
	if f.StatusUpdate != "" && !f.StatusUpdate.Valid() {
		return fmt.Errorf("invalid status_update %q", f.StatusUpdate)
	}
	return nil
}

// User is an account of the tracker.
type User struct {
	ID           string `yaml:"id" json:"id"`
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
	Name         string `yaml:"name" json:"name"`
	Role         string `yaml:"role" json:"role"`
	Email        string `yaml:"email" json:"email"`
	CreatedAt    string `yaml:"created_at" json:"created_at"`
}

func (u *User) Table() Table     { return UserTable }
func (u *User) RecordID() string { return u.ID }

func (u *User) Values() map[string]string {
	return map[string]string{
		"id":            u.ID,
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"name":          u.Name,
		"role":          u.Role,
		"email":         u.Email,
		"created_at":    u.CreatedAt,
	}
}

// Validate checks if the User has valid field values.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// Row returns the record's values in the table's column order.
func Row(r Record) []string {
	vals := r.Values()
	names := r.Table().ColumnNames()
	row := make([]string, len(names))
	for i, n := range names {
		row[i] = vals[n]
	}
	return row
}

// FromValues builds a typed record from a column map. Missing columns become
// empty strings and unknown columns are ignored. The record is not
// validated.
func FromValues(t Table, v map[string]string) (Record, error) {
	switch t {
	case ActivityTable:
		return &Activity{
			ID:               v["id"],
			MarketerUsername: v["marketer_username"],
			ProspectName:     v["prospect_name"],
			ProspectLocation: v["prospect_location"],
			ContactPerson:    v["contact_person"],
			ContactPosition:  v["contact_position"],
			ContactPhone:     v["contact_phone"],
			ContactEmail:     v["contact_email"],
			ActivityDate:     v["activity_date"],
			ActivityType:     v["activity_type"],
			Description:      v["description"],
			Status:           Status(v["status"]),
			CreatedAt:        v["created_at"],
			UpdatedAt:        v["updated_at"],
		}, nil
	case FollowupTable:
		return &Followup{
			ID:               v["id"],
			ActivityID:       v["activity_id"],
			MarketerUsername: v["marketer_username"],
			FollowupDate:     v["followup_date"],
			Notes:            v["notes"],
			NextAction:       v["next_action"],
			NextFollowupDate: v["next_followup_date"],
			InterestLevel:    v["interest_level"],
			StatusUpdate:     Status(v["status_update"]),
			CreatedAt:        v["created_at"],
		}, nil
	case UserTable:
		return &User{
			ID:           v["id"],
			Username:     v["username"],
			PasswordHash: v["password_hash"],
			Name:         v["name"],
			Role:         v["role"],
			Email:        v["email"],
			CreatedAt:    v["created_at"],
		}, nil
	}
	return nil, fmt.Errorf("table %s has no record type", t)
}
