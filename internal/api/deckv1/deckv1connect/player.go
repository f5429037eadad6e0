package deckv1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	deckv1 "github.com/osa030/19deck/internal/api/deckv1"
)

const (
	// PlayerServiceName is the fully-qualified name of the PlayerService service.
	PlayerServiceName = "deck.v1.PlayerService"

	PlayerServiceGetStateProcedure               = "/deck.v1.PlayerService/GetState"
	PlayerServiceListQueueProcedure              = "/deck.v1.PlayerService/ListQueue"
	PlayerServiceSubscribeNotificationsProcedure = "/deck.v1.PlayerService/SubscribeNotifications"
)

// PlayerServiceHandler serves read-only player state and notifications.
type PlayerServiceHandler interface {
	GetState(context.Context, *connect.Request[deckv1.GetStateRequest]) (*connect.Response[deckv1.GetStateResponse], error)
	ListQueue(context.Context, *connect.Request[deckv1.ListQueueRequest]) (*connect.Response[deckv1.ListQueueResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[deckv1.SubscribeNotificationsRequest], *connect.ServerStream[deckv1.Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceGetStateProcedure, connect.NewUnaryHandler(
		PlayerServiceGetStateProcedure,
		svc.GetState,
		opts...,
	))
	mux.Handle(PlayerServiceListQueueProcedure, connect.NewUnaryHandler(
		PlayerServiceListQueueProcedure,
		svc.ListQueue,
		opts...,
	))
	mux.Handle(PlayerServiceSubscribeNotificationsProcedure, connect.NewServerStreamHandler(
		PlayerServiceSubscribeNotificationsProcedure,
		svc.SubscribeNotifications,
		opts...,
	))
	return "/" + PlayerServiceName + "/", mux
}

// PlayerServiceClient is a client for the deck.v1.PlayerService service.
type PlayerServiceClient struct {
	getState               *connect.Client[deckv1.GetStateRequest, deckv1.GetStateResponse]
	listQueue              *connect.Client[deckv1.ListQueueRequest, deckv1.ListQueueResponse]
	subscribeNotifications *connect.Client[deckv1.SubscribeNotificationsRequest, deckv1.Notification]
}

// NewPlayerServiceClient constructs a client for the deck.v1.PlayerService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &PlayerServiceClient{
		getState: connect.NewClient[deckv1.GetStateRequest, deckv1.GetStateResponse](
			httpClient, baseURL+PlayerServiceGetStateProcedure, opts...,
		),
		listQueue: connect.NewClient[deckv1.ListQueueRequest, deckv1.ListQueueResponse](
			httpClient, baseURL+PlayerServiceListQueueProcedure, opts...,
		),
		subscribeNotifications: connect.NewClient[deckv1.SubscribeNotificationsRequest, deckv1.Notification](
			httpClient, baseURL+PlayerServiceSubscribeNotificationsProcedure, opts...,
		),
	}
}

// GetState calls deck.v1.PlayerService.GetState.
func (c *PlayerServiceClient) GetState(ctx context.Context, req *connect.Request[deckv1.GetStateRequest]) (*connect.Response[deckv1.GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

// ListQueue calls deck.v1.PlayerService.ListQueue.
func (c *PlayerServiceClient) ListQueue(ctx context.Context, req *connect.Request[deckv1.ListQueueRequest]) (*connect.Response[deckv1.ListQueueResponse], error) {
	return c.listQueue.CallUnary(ctx, req)
}

// SubscribeNotifications calls deck.v1.PlayerService.SubscribeNotifications.
func (c *PlayerServiceClient) SubscribeNotifications(ctx context.Context, req *connect.Request[deckv1.SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[deckv1.Notification], error) {
	return c.subscribeNotifications.CallServerStream(ctx, req)
}
