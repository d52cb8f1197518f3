// Package hooks wraps every local mutation of the tracker with a sync of
// the affected tables.
//
// The local write always comes first and is never undone. When the sync
// that follows it fails, the operation still succeeds and the failure is
// attached to the Outcome as a warning for the operator.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aisuara/marketing-tracker/internal/auth"
	"github.com/aisuara/marketing-tracker/internal/format"
	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/store"
	"github.com/aisuara/marketing-tracker/internal/sync"
)

var (
	// ErrDuplicateUsername is returned when adding a user whose username
	// is taken.
	ErrDuplicateUsername = errors.New("username already in use")

	// ErrSelfDelete is returned when a user tries to delete their own
	// account.
	ErrSelfDelete = errors.New("cannot delete your own account")

	// ErrInvalidRole is returned for a role other than superadmin or
	// marketing.
	ErrInvalidRole = errors.New("invalid role")
)

// Outcome is the result of a successful local write.
type Outcome struct {
	ID      string
	Message string

	// SyncWarning is set when the local write succeeded but pushing it to
	// the spreadsheet did not.
	SyncWarning error
}

// Service performs tracker mutations and syncs after each one.
type Service struct {
	store  store.Store
	syncer sync.Syncer
	fmt    *format.Formatter
	logger *log.Logger
}

// New creates a Service. A nil syncer disables syncing; a nil formatter
// means WIB; a nil logger writes to stderr.
func New(st store.Store, syncer sync.Syncer, f *format.Formatter, logger *log.Logger) *Service {
	if f == nil {
		f = format.New(nil)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[hooks] ", log.LstdFlags)
	}
	return &Service{store: st, syncer: syncer, fmt: f, logger: logger}
}

// Store returns the underlying record store.
func (s *Service) Store() store.Store {
	return s.store
}

// Formatter returns the service's formatter.
func (s *Service) Formatter() *format.Formatter {
	return s.fmt
}

// AddActivity stores a new activity and appends it to the sheet. The id,
// timestamps and a missing status (baru) are filled in.
func (s *Service) AddActivity(ctx context.Context, a *schema.Activity) (*Outcome, error) {
	if a.ID == "" {
		a.ID = schema.NewID(schema.ActivityTable)
	}
	if a.Status == "" {
		a.Status = schema.StatusNew
	}
	if err := s.normalizeActivity(a); err != nil {
		return nil, err
	}
	now := s.fmt.Now()
	a.CreatedAt, a.UpdatedAt = now, now

	if err := s.store.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to add activity: %w", err)
	}
	out := &Outcome{ID: a.ID, Message: fmt.Sprintf("Activity %s added", a.ID)}
	out.SyncWarning = s.sync(ctx, sync.Incremental, schema.ActivityTable)
	return out, nil
}

// EditActivity replaces an existing activity. created_at and the marketer
// are kept from the stored record.
func (s *Service) EditActivity(ctx context.Context, a *schema.Activity) (*Outcome, error) {
	existing, err := s.activity(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.normalizeActivity(a); err != nil {
		return nil, err
	}
	a.CreatedAt = existing.CreatedAt
	if a.MarketerUsername == "" {
		a.MarketerUsername = existing.MarketerUsername
	}
	a.UpdatedAt = s.fmt.Now()

	if err := s.store.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}
	out := &Outcome{ID: a.ID, Message: fmt.Sprintf("Activity %s updated", a.ID)}
	out.SyncWarning = s.sync(ctx, sync.Overwrite, schema.ActivityTable)
	return out, nil
}

// DeleteActivity deletes an activity and its followups, then overwrites
// both tabs.
func (s *Service) DeleteActivity(ctx context.Context, id string) (*Outcome, error) {
	followups, err := store.FollowupsOf(ctx, s.store, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read followups: %w", err)
	}
	if err := s.store.Delete(ctx, schema.ActivityTable, id); err != nil {
		return nil, fmt.Errorf("failed to delete activity: %w", err)
	}
	msg := fmt.Sprintf("Activity %s deleted", id)
	if n := len(followups); n > 0 {
		msg += fmt.Sprintf(" with %d followup(s)", n)
	}
	out := &Outcome{ID: id, Message: msg}
	out.SyncWarning = s.sync(ctx, sync.Overwrite, schema.ActivityTable, schema.FollowupTable)
	return out, nil
}

// AddFollowup stores a followup for an existing activity. A status update
// on the followup becomes the activity's status, which is an edit, so
// activities are overwritten after the followup is appended.
func (s *Service) AddFollowup(ctx context.Context, fu *schema.Followup) (*Outcome, error) {
	parent, err := s.activity(ctx, fu.ActivityID)
	if err != nil {
		return nil, err
	}
	if fu.ID == "" {
		fu.ID = schema.NewID(schema.FollowupTable)
	}
	if fu.FollowupDate == "" {
		fu.FollowupDate = s.fmt.Today()
	}
	if fu.FollowupDate, err = s.date(fu.FollowupDate, "followup_date"); err != nil {
		return nil, err
	}
	if fu.NextFollowupDate, err = s.date(fu.NextFollowupDate, "next_followup_date"); err != nil {
		return nil, err
	}
	fu.CreatedAt = s.fmt.Now()

	if err := s.store.Upsert(ctx, fu); err != nil {
		return nil, fmt.Errorf("failed to add followup: %w", err)
	}
	out := &Outcome{ID: fu.ID, Message: fmt.Sprintf("Followup %s added to %s", fu.ID, parent.ID)}

	if fu.StatusUpdate == "" || fu.StatusUpdate == parent.Status {
		out.SyncWarning = s.sync(ctx, sync.Incremental, schema.FollowupTable)
		return out, nil
	}

	parent.Status = fu.StatusUpdate
	parent.UpdatedAt = s.fmt.Now()
	if err := s.store.Upsert(ctx, parent); err != nil {
		// The followup is stored; report the status change as a warning.
		out.SyncWarning = fmt.Errorf("failed to update activity status: %w", err)
		return out, nil
	}
	out.Message += fmt.Sprintf(", activity status now %s", parent.Status.Label())
	out.SyncWarning = errors.Join(
		s.sync(ctx, sync.Incremental, schema.FollowupTable),
		s.sync(ctx, sync.Overwrite, schema.ActivityTable),
	)
	return out, nil
}

// AddUser creates an account with a bcrypt password hash.
func (s *Service) AddUser(ctx context.Context, username, password, name, role, email string) (*Outcome, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if role == "" {
		role = schema.RoleMarketing
	}
	if role != schema.RoleMarketing && role != schema.RoleSuperadmin {
		return nil, fmt.Errorf("%w %q", ErrInvalidRole, role)
	}
	if _, err := store.FindUser(ctx, s.store, username); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &schema.User{
		ID:           schema.NewID(schema.UserTable),
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Email:        email,
		CreatedAt:    s.fmt.Now(),
	}
	if err := s.store.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to add user: %w", err)
	}
	out := &Outcome{ID: u.ID, Message: fmt.Sprintf("User %s added", username)}
	out.SyncWarning = s.sync(ctx, sync.Incremental, schema.UserTable)
	return out, nil
}

// DeleteUser deletes the account with the given username. The acting user
// cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, username, actor string) (*Outcome, error) {
	if username == actor {
		return nil, ErrSelfDelete
	}
	u, err := store.FindUser(ctx, s.store, username)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, schema.UserTable, u.ID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	out := &Outcome{ID: u.ID, Message: fmt.Sprintf("User %s deleted", username)}
	out.SyncWarning = s.sync(ctx, sync.Overwrite, schema.UserTable)
	return out, nil
}

// UpdateConfig merges updates into the stored config.
func (s *Service) UpdateConfig(ctx context.Context, updates map[string]string) (*Outcome, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	for k, v := range updates {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("config key is required")
		}
		cfg[k] = v
	}
	if err := s.store.SetConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	out := &Outcome{Message: fmt.Sprintf("Config updated (%d key(s))", len(updates))}
	out.SyncWarning = s.sync(ctx, sync.Overwrite, schema.ConfigTable)
	return out, nil
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*schema.User, error) {
	u, err := store.FindUser(ctx, s.store, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) activity(ctx context.Context, id string) (*schema.Activity, error) {
	rec, err := s.store.GetByID(ctx, schema.ActivityTable, id)
	if err != nil {
		return nil, err
	}
	a, ok := rec.(*schema.Activity)
	if !ok {
		return nil, fmt.Errorf("activity %s: unexpected record type %T", id, rec)
	}
	return a, nil
}

// normalizeActivity canonicalises the activity date and phone number.
func (s *Service) normalizeActivity(a *schema.Activity) error {
	var err error
	if a.ActivityDate == "" {
		a.ActivityDate = s.fmt.Today()
	}
	if a.ActivityDate, err = s.date(a.ActivityDate, "activity_date"); err != nil {
		return err
	}
	if a.ContactPhone != "" {
		if phone, err := format.FormatPhone(a.ContactPhone); err == nil {
			a.ContactPhone = phone
		}
	}
	return nil
}

// date accepts canonical dates and phrases like "tomorrow".
func (s *Service) date(value, field string) (string, error) {
	if value == "" {
		return "", nil
	}
	d, err := s.fmt.ParseHumanDate(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// sync pushes tables after a local write and returns a warning instead of
// failing.
func (s *Service) sync(ctx context.Context, mode sync.Mode, tables ...schema.Table) error {
	if s.syncer == nil {
		return nil
	}
	var err error
	if len(tables) == 1 {
		_, err = s.syncer.SyncTable(ctx, tables[0], mode)
	} else {
		var agg *sync.AggregateReport
		agg, err = s.syncer.SyncTables(ctx, mode, tables...)
		if err == nil && !agg.Success() {
			err = errors.New(agg.Message())
		}
	}
	if err != nil {
		s.logger.Printf("WARNING: Saved locally but sync failed: %v", err)
		return fmt.Errorf("saved locally, sheet not updated: %w", err)
	}
	return nil
}
