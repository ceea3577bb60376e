package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/credit"
)

type creditApi struct {
	deps ServerDeps
}

func registerCreditAPI(g *echo.Group, identified echo.MiddlewareFunc, deps ServerDeps) {
	api := creditApi{deps: deps}

	cg := g.Group("/credits", identified)
	cg.GET("/balance", api.balance)
	cg.GET("/ledger", api.ledger)
	cg.POST("/top-up", api.topUp)
}

func (api *creditApi) balance(ctx echo.Context) error {
	bal, err := api.deps.CreditSvc.Balance(ctx.Request().Context(), contextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}

func (api *creditApi) ledger(ctx echo.Context) error {
	entries, err := api.deps.CreditSvc.Ledger(ctx.Request().Context(), contextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying ledger")
	}
	if entries == nil {
		entries = []credit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// topUp records credit whose payment was already captured upstream.
func (api *creditApi) topUp(ctx echo.Context) error {
	var data credit.TopUp
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TopUp")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	entry, err := api.deps.CreditSvc.RecordPurchase(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording purchase")
	}
	return ctx.JSON(http.StatusCreated, entry)
}
