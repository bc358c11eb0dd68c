package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/domain"
)

// maintainStreak bumps the profile streak after a task completion: no-op
// when already counted today, incremented when the last count was
// yesterday, otherwise restarted at 1. Day boundaries follow the profile
// timezone when one is set.
func (m *Manager) maintainStreak(ctx context.Context, userID string) error {
	profile, err := m.api.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			// No profile row yet; nothing to maintain.
			return nil
		}
		return fmt.Errorf("failed to read profile for streak: %w", err)
	}

	loc := time.UTC
	if profile.Timezone != nil {
		if l, err := time.LoadLocation(*profile.Timezone); err == nil {
			loc = l
		}
	}
	now := time.Now().In(loc)
	today := now.Format("2006-01-02")

	streak := 1
	if profile.LastStreakUpdated != nil {
		last := profile.LastStreakUpdated.In(loc).Format("2006-01-02")
		switch last {
		case today:
			return nil
		case now.AddDate(0, 0, -1).Format("2006-01-02"):
			streak = profile.CurrentStreak + 1
		}
	}

	stamp := now.UTC().Format(time.RFC3339)
	_, err = m.api.UpdateProfile(ctx, userID, domain.ProfileUpdate{
		CurrentStreak:     &streak,
		LastStreakUpdated: &stamp,
	})
	if err != nil {
		return fmt.Errorf("failed to write streak: %w", err)
	}
	return nil
}
