package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/api/deckv1"
	"github.com/osa030/19deck/internal/app/playback"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*deckv1.Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *deckv1.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) received() []*deckv1.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*deckv1.Notification(nil), s.got...)
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()
	id1 := m.Subscribe(&recordingStream{})
	id2 := m.Subscribe(&recordingStream{})

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastAssignsSequenceNumbers(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)

	m.Broadcast(&deckv1.Notification{Type: deckv1.NotificationTypeTrackStarted})
	m.Broadcast(&deckv1.Notification{Type: deckv1.NotificationTypeTrackEnded})

	for _, s := range []*recordingStream{a, b} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
	}
}

func TestManager_BroadcastDropsFailingSubscriber(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})
	ok := &recordingStream{}
	m.Subscribe(ok)

	m.Broadcast(&deckv1.Notification{Type: deckv1.NotificationTypeStateChanged})

	assert.Equal(t, 1, m.SubscriberCount())
	assert.Len(t, ok.received(), 1)
}

func TestManager_BroadcastDoesNotWaitForSlowSubscriber(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	m.Subscribe(slow)

	start := time.Now()
	m.Broadcast(&deckv1.Notification{Type: deckv1.NotificationTypeStateChanged})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_Notify(t *testing.T) {
	tests := []struct {
		name     string
		messages MessageFunc
		want     string
	}{
		{name: "engine text", want: "Shuffle on"},
		{
			name:     "configured text",
			messages: func(code string) string { return map[string]string{"shuffle_on": "Shuffling"}[code] },
			want:     "Shuffling",
		},
		{
			name:     "unknown code keeps engine text",
			messages: func(string) string { return "" },
			want:     "Shuffle on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.messages != nil {
				opts = append(opts, WithMessages(tt.messages))
			}
			m := NewManager(opts...)
			s := &recordingStream{}
			m.Subscribe(s)

			m.Notify(playback.Notice{Code: "shuffle_on", Message: "Shuffle on", Shuffle: true})

			got := s.received()
			require.Len(t, got, 1)
			assert.Equal(t, deckv1.NotificationTypeNotice, got[0].Type)
			assert.Equal(t, "shuffle_on", got[0].Code)
			assert.Equal(t, tt.want, got[0].Message)
		})
	}
}

func TestManager_Pump(t *testing.T) {
	m := NewManager(WithMessages(func(code string) string {
		if code == "load_failed" {
			return "Could not play"
		}
		return ""
	}))
	s := &recordingStream{}
	m.Subscribe(s)

	events := make(chan playback.Event, 2)
	events <- playback.Event{Type: playback.EventTrackStarted}
	events <- playback.Event{Type: playback.EventLoadFailed, Err: errors.New("boom")}
	close(events)

	done := make(chan struct{})
	go func() {
		m.Pump(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after the events channel closed")
	}

	got := s.received()
	require.Len(t, got, 2)
	assert.Equal(t, deckv1.NotificationTypeTrackStarted, got[0].Type)
	assert.Equal(t, deckv1.NotificationTypeLoadFailed, got[1].Type)
	assert.Equal(t, "Could not play", got[1].Message)
	assert.Equal(t, "boom", got[1].Error)
}

func TestManager_PumpStopsOnContext(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Pump(ctx, make(chan playback.Event))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after cancel")
	}
}
