package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/feedback"
)

type feedbackApi struct {
	deps ServerDeps
}

func registerFeedbackAPI(g *echo.Group, identified echo.MiddlewareFunc, deps ServerDeps) {
	api := feedbackApi{deps: deps}

	fg := g.Group("/feedback", identified)
	fg.POST("", api.create)
	fg.GET("/assistants/:id", api.queryByAssistant, instructorMiddleware())
}

func (api *feedbackApi) create(ctx echo.Context) error {
	var data feedback.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	fb, err := api.deps.FeedbackSvc.Create(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) queryByAssistant(ctx echo.Context) error {
	fbs, err := api.deps.FeedbackSvc.QueryByAssistant(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if fbs == nil {
		fbs = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}
