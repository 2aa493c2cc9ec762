package service

import (
	"context"
	"time"
	_ "time/tzdata"

	"focusrooms/backend/internal/analytics"
	"focusrooms/backend/internal/backend"
	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
)

type AnalyticsService struct {
	client *backend.Client
	now    func() time.Time
}

func NewAnalyticsService(client *backend.Client) *AnalyticsService {
	return &AnalyticsService{client: client, now: time.Now}
}

// Report builds the user's analytics in the viewer's time zone. Read
// failures degrade to zero figures.
func (s *AnalyticsService) Report(ctx context.Context, userID, tz string) (analytics.Report, *apperrors.APIError) {
	loc := time.UTC
	if tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return analytics.Report{}, apperrors.BadRequest("invalid_timezone", "unknown time zone "+tz)
		}
		loc = parsed
	}

	sessions, err := s.client.Sessions.ListClosedByUser(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("session history read failed")
		sessions = nil
	}
	goals, err := s.client.Goals.ListByUser(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("goal history read failed")
		goals = nil
	}
	return analytics.Build(sessions, goals, s.now(), loc), nil
}
