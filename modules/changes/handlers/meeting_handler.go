package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/scheduling"
	"github.com/cabflow/cabflow/pkg/application"
)

const scheduleTimeout = 10 * time.Second

// MeetingEventsHandler turns final approvals into review meeting requests.
// It runs off the event bus, after the approval has committed; a scheduling
// failure is logged and the approval stands.
type MeetingEventsHandler struct {
	scheduler scheduling.Scheduler
	logger    *logrus.Logger
}

func RegisterMeetingEventHandlers(app application.Application, scheduler scheduling.Scheduler) *MeetingEventsHandler {
	handler := &MeetingEventsHandler{
		scheduler: scheduler,
		logger:    app.Logger(),
	}
	app.EventPublisher().Subscribe(handler.onRequestApproved)
	return handler
}

func (h *MeetingEventsHandler) onRequestApproved(event *changerequest.RequestApprovedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduleTimeout)
	defer cancel()

	attendees := make([]string, 0, len(event.RequiredApprovers)+1)
	attendees = append(attendees, event.RequiredApprovers...)
	if !contains(attendees, event.RequesterID) {
		attendees = append(attendees, event.RequesterID)
	}

	req := scheduling.MeetingRequest{
		ChangeRequestID: event.RequestID,
		Title:           "Change review: " + event.Title,
		ProjectID:       event.ProjectID,
		Attendees:       attendees,
	}
	if err := h.scheduler.ScheduleReview(ctx, req); err != nil {
		h.logger.WithError(err).
			WithField("change_request_id", event.RequestID).
			Warn("failed to schedule review meeting")
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
