package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
)

type chatApi struct {
	deps ServerDeps
}

func registerChatAPI(g *echo.Group, identified echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{deps: deps}

	cg := g.Group("/conversations", identified)
	cg.POST("", api.create)
	cg.GET("", api.list)

	sendLimit := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
		rate.Limit(deps.Conf.Chat.SendRatePerSec)))

	dg := cg.Group("/:id")
	dg.GET("/messages", api.history)
	dg.POST("/messages", api.send, sendLimit)
	dg.POST("/typing", api.typing)
	dg.POST("/agent-reply", api.agentReply)
	dg.GET("/participants-brief", api.participantsBrief)
}

// Handlers

func (api *chatApi) create(ctx echo.Context) error {
	var data chat.NewConversation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConversation")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	conv, err := api.deps.ChatSvc.CreateConversation(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating conversation")
	}
	return ctx.JSON(http.StatusCreated, conv)
}

func (api *chatApi) list(ctx echo.Context) error {
	convs, err := api.deps.ChatSvc.Conversations(ctx.Request().Context(), contextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying conversations")
	}
	if convs == nil {
		convs = []chat.ConversationWithPreview{}
	}
	return ctx.JSON(http.StatusOK, convs)
}

// history serves the canonical {messages} payload; `?shape=history`
// keeps the legacy {history, assistant} shape old clients consume.
func (api *chatApi) history(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	if ctx.QueryParam("shape") == "history" {
		hist, err := api.deps.ChatSvc.LegacyHistory(reqCtx, id, contextUserID(ctx))
		if err != nil {
			return trapChatErr(err, "querying legacy history")
		}
		return ctx.JSON(http.StatusOK, hist)
	}

	hist, err := api.deps.ChatSvc.History(reqCtx, id)
	if err != nil {
		return trapChatErr(err, "querying history")
	}
	return ctx.JSON(http.StatusOK, hist)
}

func (api *chatApi) send(ctx echo.Context) error {
	var data chat.SendMessageInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageInput")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	msg, err := api.deps.ChatSvc.Send(
		ctx.Request().Context(), ctx.Param("id"), contextUserID(ctx), contextRole(ctx), data)
	if err != nil {
		return trapChatErr(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) typing(ctx echo.Context) error {
	var data TypingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TypingRequest")
	}

	api.deps.ChatSvc.Typing(ctx.Request().Context(), ctx.Param("id"), data.Typing)
	return ctx.NoContent(http.StatusAccepted)
}

// agentReply ingests an assistant worker's reply; the invocation id
// correlates it with the triggering request and makes delivery
// idempotent on the client.
func (api *chatApi) agentReply(ctx echo.Context) error {
	var data AgentReplyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AgentReplyRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	msg, err := api.deps.ChatSvc.SendAgentReply(
		ctx.Request().Context(), ctx.Param("id"), data.AssistantID, data.InvocationID, data.Content)
	if err != nil {
		return trapChatErr(err, "sending agent reply")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) participantsBrief(ctx echo.Context) error {
	brief, err := api.deps.ChatSvc.ParticipantsBrief(ctx.Request().Context(), ctx.Param("id"), contextUserID(ctx))
	if err != nil {
		return trapChatErr(err, "querying participants brief")
	}
	return ctx.JSON(http.StatusOK, brief)
}

// trapChatErr maps domain errors to HTTP errors.
func trapChatErr(err error, msg string) error {
	switch errors.Cause(err) {
	case chat.ErrNotFound:
		return errHttpNotFound
	case chat.ErrNotParticipant:
		return errHttpForbidden
	}
	return errors.Wrap(err, msg)
}

type (
	TypingRequest struct {
		Typing bool `json:"typing"`
	}

	AgentReplyRequest struct {
		AssistantID  string `json:"assistant_id" validate:"required"`
		InvocationID string `json:"invocation_id"`
		Content      string `json:"content" validate:"required"`
	}
)

func (ar *AgentReplyRequest) Validate(validate *validator.Validate) error {
	ar.AssistantID = core.CleanString(ar.AssistantID)
	ar.InvocationID = core.CleanString(ar.InvocationID)
	return validate.Struct(ar)
}
