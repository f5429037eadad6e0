package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	deckv1 "github.com/osa030/19deck/internal/api/deckv1"
	"github.com/osa030/19deck/internal/api/deckv1/deckv1connect"
	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/infra/config"
)

// ControlService implements the ControlService RPC.
type ControlService struct {
	player Player
	config *config.Config
}

// NewControlService creates a new ControlService.
func NewControlService(player Player, cfg *config.Config) *ControlService {
	return &ControlService{
		player: player,
		config: cfg,
	}
}

// Ensure ControlService implements the interface.
var _ deckv1connect.ControlServiceHandler = (*ControlService)(nil)

// PlayTrack plays a playlist track by id, or an ad-hoc track descriptor.
func (s *ControlService) PlayTrack(
	ctx context.Context,
	req *connect.Request[deckv1.PlayTrackRequest],
) (*connect.Response[deckv1.CommandResponse], error) {
	if req.Msg.TrackId != "" {
		tracks := s.player.Playlist()
		i := playlist.IndexOf(tracks, req.Msg.TrackId)
		if i < 0 {
			return nil, connect.NewError(connect.CodeNotFound,
				errors.Newf("track not in playlist: %s", req.Msg.TrackId))
		}
		s.player.PlayTrack(tracks[i])
		return s.result(), nil
	}

	t, err := req.Msg.Track.ToDomain()
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	zlog.Info().Msgf("control: play ad-hoc track: id=%s source=%s", t.ID, t.Source)
	s.player.PlayTrack(t)
	return s.result(), nil
}

// TogglePlayPause pauses or resumes playback.
func (s *ControlService) TogglePlayPause(
	ctx context.Context,
	req *connect.Request[deckv1.Empty],
) (*connect.Response[deckv1.CommandResponse], error) {
	s.player.TogglePlayPause()
	return s.result(), nil
}

// Next skips to the next track.
func (s *ControlService) Next(
	ctx context.Context,
	req *connect.Request[deckv1.Empty],
) (*connect.Response[deckv1.CommandResponse], error) {
	s.player.Next()
	return s.result(), nil
}

// Previous restarts the current track or goes back one.
func (s *ControlService) Previous(
	ctx context.Context,
	req *connect.Request[deckv1.Empty],
) (*connect.Response[deckv1.CommandResponse], error) {
	s.player.Previous()
	return s.result(), nil
}

// SeekTo moves the playback position.
func (s *ControlService) SeekTo(
	ctx context.Context,
	req *connect.Request[deckv1.SeekToRequest],
) (*connect.Response[deckv1.CommandResponse], error) {
	s.player.SeekTo(time.Duration(req.Msg.PositionMs) * time.Millisecond)
	return s.result(), nil
}

// SetVolume sets the output volume.
func (s *ControlService) SetVolume(
	ctx context.Context,
	req *connect.Request[deckv1.SetVolumeRequest],
) (*connect.Response[deckv1.CommandResponse], error) {
	s.player.SetVolume(req.Msg.Volume)
	return s.result(), nil
}

// ToggleShuffle flips shuffle.
func (s *ControlService) ToggleShuffle(
	ctx context.Context,
	req *connect.Request[deckv1.Empty],
) (*connect.Response[deckv1.ToggleShuffleResponse], error) {
	on := s.player.ToggleShuffle()
	code := "shuffle_off"
	if on {
		code = "shuffle_on"
	}
	return connect.NewResponse(&deckv1.ToggleShuffleResponse{
		Shuffle: on,
		Message: s.config.GetMessage(code),
	}), nil
}

// ToggleRepeat cycles the repeat mode.
func (s *ControlService) ToggleRepeat(
	ctx context.Context,
	req *connect.Request[deckv1.Empty],
) (*connect.Response[deckv1.ToggleRepeatResponse], error) {
	mode := s.player.ToggleRepeat()
	return connect.NewResponse(&deckv1.ToggleRepeatResponse{
		Repeat:  mode.String(),
		Message: s.config.GetMessage("repeat_" + mode.String()),
	}), nil
}

// result reports the state after a command. Load failures are delivered as
// load_failed notifications, not as RPC errors.
func (s *ControlService) result() *connect.Response[deckv1.CommandResponse] {
	return connect.NewResponse(&deckv1.CommandResponse{
		Success: true,
		State:   deckv1.FromState(s.player.Snapshot()),
	})
}
