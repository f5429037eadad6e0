package connect

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	deckv1 "github.com/osa030/19deck/internal/api/deckv1"
	"github.com/osa030/19deck/internal/api/deckv1/deckv1connect"
	"github.com/osa030/19deck/internal/app/notification"
	"github.com/osa030/19deck/internal/domain/playlist"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	player       Player
	notification *notification.Manager
	done         <-chan struct{}
}

// NewPlayerService creates a new PlayerService. Notification streams end when
// done is closed.
func NewPlayerService(player Player, notif *notification.Manager, done <-chan struct{}) *PlayerService {
	return &PlayerService{
		player:       player,
		notification: notif,
		done:         done,
	}
}

// Ensure PlayerService implements the interface.
var _ deckv1connect.PlayerServiceHandler = (*PlayerService)(nil)

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[deckv1.GetStateRequest],
) (*connect.Response[deckv1.GetStateResponse], error) {
	return connect.NewResponse(&deckv1.GetStateResponse{
		State: deckv1.FromState(s.player.Snapshot()),
	}), nil
}

// ListQueue returns the playlist as the player sees it.
func (s *PlayerService) ListQueue(
	ctx context.Context,
	req *connect.Request[deckv1.ListQueueRequest],
) (*connect.Response[deckv1.ListQueueResponse], error) {
	tracks := s.player.Playlist()
	state := s.player.Snapshot()
	pl := playlist.Playlist{Tracks: tracks}

	return connect.NewResponse(&deckv1.ListQueueResponse{
		Tracks:        deckv1.FromTracks(tracks),
		CurrentIndex:  int32(playlist.IndexOf(tracks, currentID(state.CurrentTrack))),
		TotalDuration: pl.TotalDuration().Milliseconds(),
	}), nil
}

// SubscribeNotifications sends the current state, then streams notifications
// until the client goes away or the server shuts down.
func (s *PlayerService) SubscribeNotifications(
	ctx context.Context,
	req *connect.Request[deckv1.SubscribeNotificationsRequest],
	stream *connect.ServerStream[deckv1.Notification],
) error {
	initial := &deckv1.Notification{
		Type:       deckv1.NotificationTypeInitialState,
		SequenceNo: s.notification.NextSequenceNo(),
		State:      deckv1.FromState(s.player.Snapshot()),
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	initial.Track = initial.State.CurrentTrack
	if err := stream.Send(initial); err != nil {
		return err
	}

	// The stream must not be written once the handler returns, so the
	// adapter is closed after unsubscribing, waiting out any pending send.
	adapter := &notificationStreamAdapter{stream: stream}
	defer adapter.close()
	subscriptionID := s.notification.Subscribe(adapter)
	defer s.notification.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

var errStreamClosed = errors.New("notification stream closed")

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// A send abandoned after a broadcast timeout may still be in progress when
// the next one starts, so sends are serialized.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[deckv1.Notification]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *deckv1.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(n)
}

// close waits for an in-progress send and rejects later ones.
func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
