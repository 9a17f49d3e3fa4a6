package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teaching-portal-api/pkg/jobs"
)

type recordingPublisher struct {
	mu       sync.Mutex
	events   []Event
	failures int
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: no responders")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func TestDispatcherDeliversWithRetry(t *testing.T) {
	pub := &recordingPublisher{failures: 1}
	d := NewDispatcher(pub, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	d.Start(context.Background())
	defer d.Stop()

	require.NoError(t, d.Dispatch(context.Background(), Event{Type: TypeFinalGradesRecomputed, ClassID: "class-1"}))

	assert.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
	got := pub.published()[0]
	assert.Equal(t, "class-1", got.ClassID)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestDispatcherNotStarted(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{}, jobs.QueueConfig{})
	assert.Error(t, d.Dispatch(context.Background(), Event{Type: TypeFinalGradesPublished}))
}

func TestNATSPublisherWithoutConnection(t *testing.T) {
	p := NewNATSPublisher(nil, "events")
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeAttendanceScored}))
	assert.Equal(t, "events.grades.attendance.scored", p.Subject(Event{Type: TypeAttendanceScored}))
	assert.Equal(t, TypeAttendanceScored, NewNATSPublisher(nil, "").Subject(Event{Type: TypeAttendanceScored}))
}

func TestConnectDisabledWithoutURL(t *testing.T) {
	conn, err := Connect("", "test", nil)
	assert.NoError(t, err)
	assert.Nil(t, conn)
}
