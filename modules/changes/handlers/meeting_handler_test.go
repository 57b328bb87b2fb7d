package handlers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/scheduling"
	"github.com/cabflow/cabflow/modules/changes/handlers"
	"github.com/cabflow/cabflow/pkg/application"
	"github.com/cabflow/cabflow/pkg/eventbus"
)

type recordingScheduler struct {
	mu       sync.Mutex
	requests []scheduling.MeetingRequest
	err      error
}

func (s *recordingScheduler) ScheduleReview(_ context.Context, req scheduling.MeetingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.err
}

func newTestApp() application.Application {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
}

func TestMeetingEventsHandler_SchedulesOnApproval(t *testing.T) {
	t.Parallel()

	app := newTestApp()
	sched := &recordingScheduler{}
	handlers.RegisterMeetingEventHandlers(app, sched)

	cr := changerequest.New("Rotate TLS certs", "PAY", "requester", time.Now(),
		changerequest.WithRequiredApprovers([]string{"alice", "bob"}))
	app.EventPublisher().Publish(changerequest.NewRequestApprovedEvent(cr, "alice", time.Now()))

	sched.mu.Lock()
	defer sched.mu.Unlock()
	require.Len(t, sched.requests, 1)
	got := sched.requests[0]
	assert.Equal(t, cr.ID(), got.ChangeRequestID)
	assert.Equal(t, "Change review: Rotate TLS certs", got.Title)
	assert.Equal(t, "PAY", got.ProjectID)
	assert.ElementsMatch(t, []string{"alice", "bob", "requester"}, got.Attendees)
}

func TestMeetingEventsHandler_RequesterNotDuplicatedInAttendees(t *testing.T) {
	t.Parallel()

	app := newTestApp()
	sched := &recordingScheduler{}
	handlers.RegisterMeetingEventHandlers(app, sched)

	cr := changerequest.New("Self-approved window", "PAY", "alice", time.Now(),
		changerequest.WithRequiredApprovers([]string{"alice"}))
	app.EventPublisher().Publish(changerequest.NewRequestApprovedEvent(cr, "alice", time.Now()))

	sched.mu.Lock()
	defer sched.mu.Unlock()
	require.Len(t, sched.requests, 1)
	assert.Equal(t, []string{"alice"}, sched.requests[0].Attendees)
}

func TestMeetingEventsHandler_SchedulingFailureDoesNotPanic(t *testing.T) {
	t.Parallel()

	app := newTestApp()
	sched := &recordingScheduler{err: errors.New("calendar down")}
	handlers.RegisterMeetingEventHandlers(app, sched)

	cr := changerequest.New("title", "PAY", "requester", time.Now())
	assert.NotPanics(t, func() {
		app.EventPublisher().Publish(changerequest.NewRequestApprovedEvent(cr, "admin", time.Now()))
	})
}
