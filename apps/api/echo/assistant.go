package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/assistant"
)

type assistantApi struct {
	deps ServerDeps
}

func registerAssistantAPI(g *echo.Group, identified echo.MiddlewareFunc, deps ServerDeps) {
	api := assistantApi{deps: deps}

	ag := g.Group("/assistants", identified)
	ag.GET("", api.queryPublished)
	ag.POST("", api.create, instructorMiddleware())
	ag.GET("/mine", api.queryMine, instructorMiddleware())

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, instructorMiddleware())
	dg.DELETE("", api.destroy, instructorMiddleware())
}

func (api *assistantApi) create(ctx echo.Context) error {
	var data assistant.NewAssistant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssistant")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	a, err := api.deps.AssistantSvc.Create(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assistant")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assistantApi) queryPublished(ctx echo.Context) error {
	assistants, err := api.deps.AssistantSvc.QueryPublished(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying published assistants")
	}
	if assistants == nil {
		assistants = []assistant.Assistant{}
	}
	return ctx.JSON(http.StatusOK, assistants)
}

func (api *assistantApi) queryMine(ctx echo.Context) error {
	assistants, err := api.deps.AssistantSvc.QueryByInstructor(ctx.Request().Context(), contextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying instructor assistants")
	}
	if assistants == nil {
		assistants = []assistant.Assistant{}
	}
	return ctx.JSON(http.StatusOK, assistants)
}

func (api *assistantApi) retrieve(ctx echo.Context) error {
	a, err := api.deps.AssistantSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapAssistantErr(err, "finding assistant by ID")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assistantApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	// only the owner may modify
	orig, err := api.deps.AssistantSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return trapAssistantErr(err, "finding assistant by ID")
	}
	if orig.InstructorID != contextUserID(ctx) {
		return errHttpForbidden
	}

	var data assistant.UpdateAssistant
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssistant")
	}
	if err = data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	a, err := api.deps.AssistantSvc.Update(reqCtx, orig.ID, data)
	if err != nil {
		return trapAssistantErr(err, "updating assistant")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assistantApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orig, err := api.deps.AssistantSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return trapAssistantErr(err, "finding assistant by ID")
	}
	if orig.InstructorID != contextUserID(ctx) {
		return errHttpForbidden
	}

	if err = api.deps.AssistantSvc.Delete(reqCtx, orig.ID); err != nil {
		return errors.Wrap(err, "deleting assistant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func trapAssistantErr(err error, msg string) error {
	if errors.Cause(err) == assistant.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}
