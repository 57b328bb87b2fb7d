package scheduling

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/cabflow/cabflow/modules/changes/domain/scheduling"
)

// LogScheduler records meeting requests in the log instead of calling a
// calendar backend. Used until a real calendar integration is configured.
type LogScheduler struct {
	logger *logrus.Logger
}

func NewLogScheduler(logger *logrus.Logger) *LogScheduler {
	return &LogScheduler{logger: logger}
}

var _ domain.Scheduler = (*LogScheduler)(nil)

func (s *LogScheduler) ScheduleReview(_ context.Context, req domain.MeetingRequest) error {
	s.logger.WithFields(logrus.Fields{
		"change_request_id": req.ChangeRequestID,
		"project_id":        req.ProjectID,
		"attendees":         req.Attendees,
	}).Info("review meeting requested")
	return nil
}
