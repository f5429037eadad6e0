package deckv1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	deckv1 "github.com/osa030/19deck/internal/api/deckv1"
)

const (
	// ControlServiceName is the fully-qualified name of the ControlService service.
	ControlServiceName = "deck.v1.ControlService"

	ControlServicePlayTrackProcedure       = "/deck.v1.ControlService/PlayTrack"
	ControlServiceTogglePlayPauseProcedure = "/deck.v1.ControlService/TogglePlayPause"
	ControlServiceNextProcedure            = "/deck.v1.ControlService/Next"
	ControlServicePreviousProcedure        = "/deck.v1.ControlService/Previous"
	ControlServiceSeekToProcedure          = "/deck.v1.ControlService/SeekTo"
	ControlServiceSetVolumeProcedure       = "/deck.v1.ControlService/SetVolume"
	ControlServiceToggleShuffleProcedure   = "/deck.v1.ControlService/ToggleShuffle"
	ControlServiceToggleRepeatProcedure    = "/deck.v1.ControlService/ToggleRepeat"
)

// ControlServiceHandler drives the transport. Every procedure requires the
// admin token.
type ControlServiceHandler interface {
	PlayTrack(context.Context, *connect.Request[deckv1.PlayTrackRequest]) (*connect.Response[deckv1.CommandResponse], error)
	TogglePlayPause(context.Context, *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error)
	Next(context.Context, *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error)
	Previous(context.Context, *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error)
	SeekTo(context.Context, *connect.Request[deckv1.SeekToRequest]) (*connect.Response[deckv1.CommandResponse], error)
	SetVolume(context.Context, *connect.Request[deckv1.SetVolumeRequest]) (*connect.Response[deckv1.CommandResponse], error)
	ToggleShuffle(context.Context, *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.ToggleShuffleResponse], error)
	ToggleRepeat(context.Context, *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.ToggleRepeatResponse], error)
}

// NewControlServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewControlServiceHandler(svc ControlServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ControlServicePlayTrackProcedure, connect.NewUnaryHandler(
		ControlServicePlayTrackProcedure,
		svc.PlayTrack,
		opts...,
	))
	mux.Handle(ControlServiceTogglePlayPauseProcedure, connect.NewUnaryHandler(
		ControlServiceTogglePlayPauseProcedure,
		svc.TogglePlayPause,
		opts...,
	))
	mux.Handle(ControlServiceNextProcedure, connect.NewUnaryHandler(
		ControlServiceNextProcedure,
		svc.Next,
		opts...,
	))
	mux.Handle(ControlServicePreviousProcedure, connect.NewUnaryHandler(
		ControlServicePreviousProcedure,
		svc.Previous,
		opts...,
	))
	mux.Handle(ControlServiceSeekToProcedure, connect.NewUnaryHandler(
		ControlServiceSeekToProcedure,
		svc.SeekTo,
		opts...,
	))
	mux.Handle(ControlServiceSetVolumeProcedure, connect.NewUnaryHandler(
		ControlServiceSetVolumeProcedure,
		svc.SetVolume,
		opts...,
	))
	mux.Handle(ControlServiceToggleShuffleProcedure, connect.NewUnaryHandler(
		ControlServiceToggleShuffleProcedure,
		svc.ToggleShuffle,
		opts...,
	))
	mux.Handle(ControlServiceToggleRepeatProcedure, connect.NewUnaryHandler(
		ControlServiceToggleRepeatProcedure,
		svc.ToggleRepeat,
		opts...,
	))
	return "/" + ControlServiceName + "/", mux
}

// ControlServiceClient is a client for the deck.v1.ControlService service.
type ControlServiceClient struct {
	playTrack       *connect.Client[deckv1.PlayTrackRequest, deckv1.CommandResponse]
	togglePlayPause *connect.Client[deckv1.Empty, deckv1.CommandResponse]
	next            *connect.Client[deckv1.Empty, deckv1.CommandResponse]
	previous        *connect.Client[deckv1.Empty, deckv1.CommandResponse]
	seekTo          *connect.Client[deckv1.SeekToRequest, deckv1.CommandResponse]
	setVolume       *connect.Client[deckv1.SetVolumeRequest, deckv1.CommandResponse]
	toggleShuffle   *connect.Client[deckv1.Empty, deckv1.ToggleShuffleResponse]
	toggleRepeat    *connect.Client[deckv1.Empty, deckv1.ToggleRepeatResponse]
}

// NewControlServiceClient constructs a client for the deck.v1.ControlService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewControlServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ControlServiceClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &ControlServiceClient{
		playTrack: connect.NewClient[deckv1.PlayTrackRequest, deckv1.CommandResponse](
			httpClient, baseURL+ControlServicePlayTrackProcedure, opts...,
		),
		togglePlayPause: connect.NewClient[deckv1.Empty, deckv1.CommandResponse](
			httpClient, baseURL+ControlServiceTogglePlayPauseProcedure, opts...,
		),
		next: connect.NewClient[deckv1.Empty, deckv1.CommandResponse](
			httpClient, baseURL+ControlServiceNextProcedure, opts...,
		),
		previous: connect.NewClient[deckv1.Empty, deckv1.CommandResponse](
			httpClient, baseURL+ControlServicePreviousProcedure, opts...,
		),
		seekTo: connect.NewClient[deckv1.SeekToRequest, deckv1.CommandResponse](
			httpClient, baseURL+ControlServiceSeekToProcedure, opts...,
		),
		setVolume: connect.NewClient[deckv1.SetVolumeRequest, deckv1.CommandResponse](
			httpClient, baseURL+ControlServiceSetVolumeProcedure, opts...,
		),
		toggleShuffle: connect.NewClient[deckv1.Empty, deckv1.ToggleShuffleResponse](
			httpClient, baseURL+ControlServiceToggleShuffleProcedure, opts...,
		),
		toggleRepeat: connect.NewClient[deckv1.Empty, deckv1.ToggleRepeatResponse](
			httpClient, baseURL+ControlServiceToggleRepeatProcedure, opts...,
		),
	}
}

// PlayTrack calls deck.v1.ControlService.PlayTrack.
func (c *ControlServiceClient) PlayTrack(ctx context.Context, req *connect.Request[deckv1.PlayTrackRequest]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.playTrack.CallUnary(ctx, req)
}

// TogglePlayPause calls deck.v1.ControlService.TogglePlayPause.
func (c *ControlServiceClient) TogglePlayPause(ctx context.Context, req *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.togglePlayPause.CallUnary(ctx, req)
}

// Next calls deck.v1.ControlService.Next.
func (c *ControlServiceClient) Next(ctx context.Context, req *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.next.CallUnary(ctx, req)
}

// Previous calls deck.v1.ControlService.Previous.
func (c *ControlServiceClient) Previous(ctx context.Context, req *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

// SeekTo calls deck.v1.ControlService.SeekTo.
func (c *ControlServiceClient) SeekTo(ctx context.Context, req *connect.Request[deckv1.SeekToRequest]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.seekTo.CallUnary(ctx, req)
}

// SetVolume calls deck.v1.ControlService.SetVolume.
func (c *ControlServiceClient) SetVolume(ctx context.Context, req *connect.Request[deckv1.SetVolumeRequest]) (*connect.Response[deckv1.CommandResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

// ToggleShuffle calls deck.v1.ControlService.ToggleShuffle.
func (c *ControlServiceClient) ToggleShuffle(ctx context.Context, req *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.ToggleShuffleResponse], error) {
	return c.toggleShuffle.CallUnary(ctx, req)
}

// ToggleRepeat calls deck.v1.ControlService.ToggleRepeat.
func (c *ControlServiceClient) ToggleRepeat(ctx context.Context, req *connect.Request[deckv1.Empty]) (*connect.Response[deckv1.ToggleRepeatResponse], error) {
	return c.toggleRepeat.CallUnary(ctx, req)
}
