package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub/internal/domain"
)

// SettingsLoader reads the app_settings singleton row. Sessions freeze these
// values at creation, so a running game never sees later edits.
type SettingsLoader struct {
	pool *pgxpool.Pool
}

func NewSettingsLoader(pool *pgxpool.Pool) *SettingsLoader {
	return &SettingsLoader{pool: pool}
}

func (l *SettingsLoader) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	err := l.pool.QueryRow(ctx, `
		SELECT points_system, leaderboard_frequency, default_timer_seconds,
		       enable_test_mode, require_player_names, organization_name
		FROM app_settings WHERE id=1`).Scan(
		&settings.PointsSystem,
		&settings.LeaderboardFrequency,
		&settings.DefaultTimerSeconds,
		&settings.EnableTestMode,
		&settings.RequirePlayerNames,
		&settings.OrganizationName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}
