package hooks

import (
	"context"
	"sort"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/store"
)

// Activities returns the activities of a marketer, or all of them when
// marketer is empty.
func (s *Service) Activities(ctx context.Context, marketer string) ([]*schema.Activity, error) {
	recs, err := s.store.GetAll(ctx, schema.ActivityTable)
	if err != nil {
		return nil, err
	}
	var out []*schema.Activity
	for _, r := range recs {
		a := r.(*schema.Activity)
		if marketer == "" || a.MarketerUsername == marketer {
			out = append(out, a)
		}
	}
	return out, nil
}

// Followups returns the followups of an activity, or all of them when
// activityID is empty.
func (s *Service) Followups(ctx context.Context, activityID string) ([]*schema.Followup, error) {
	if activityID != "" {
		return store.FollowupsOf(ctx, s.store, activityID)
	}
	recs, err := s.store.GetAll(ctx, schema.FollowupTable)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Followup, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.(*schema.Followup))
	}
	return out, nil
}

// Users returns every account.
func (s *Service) Users(ctx context.Context) ([]*schema.User, error) {
	recs, err := s.store.GetAll(ctx, schema.UserTable)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.(*schema.User))
	}
	return out, nil
}

// Config returns the config mapping.
func (s *Service) Config(ctx context.Context) (map[string]string, error) {
	return s.store.GetConfig(ctx)
}

// Due is a followup whose next followup date is near.
type Due struct {
	Followup *schema.Followup
	Days     int // negative when overdue
}

// DueFollowups returns followups whose next_followup_date is at most
// within days away, overdue ones included, soonest first.
func (s *Service) DueFollowups(ctx context.Context, within int) ([]Due, error) {
	fus, err := s.Followups(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []Due
	for _, fu := range fus {
		if fu.NextFollowupDate == "" {
			continue
		}
		days, err := s.fmt.DaysUntil(fu.NextFollowupDate)
		if err != nil {
			s.logger.Printf("WARNING: followup %s has unreadable next date %q", fu.ID, fu.NextFollowupDate)
			continue
		}
		if days <= within {
			out = append(out, Due{Followup: fu, Days: days})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out, nil
}
