package echoapi

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/services/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func registerRealtimeAPI(g *echo.Group, deps ServerDeps) {
	api := realtimeApi{deps: deps}
	g.GET("/ws/conversations/:id", api.subscribe, identityMiddleware())
}

type realtimeApi struct {
	deps ServerDeps
}

// subscribe upgrades the request and ties the socket to one
// conversation for the lifetime of the connection. The client_ref query
// param links the socket to the caller's optimistic sends so its own
// messages are not echoed back.
func (api *realtimeApi) subscribe(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	conversationID := ctx.Param("id")

	conv, err := api.deps.ChatSvc.GetByID(reqCtx, conversationID)
	if err != nil {
		return trapChatErr(err, "finding conversation by ID")
	}
	if contextRole(ctx) == chat.SenderStudent && conv.StudentID != contextUserID(ctx) {
		return errHttpForbidden
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	client := realtime.NewClient(
		conversationID,
		ctx.QueryParam("client_ref"),
		conn,
		api.deps.Conf,
		func(ctx context.Context, conversationID string, typing bool) {
			api.deps.ChatSvc.Typing(ctx, conversationID, typing)
		},
		api.deps.Logger,
	)
	api.deps.Hub.Register(client)

	go client.WritePump()
	client.ReadPump(context.Background(), api.deps.Hub)
	return nil
}
