package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/document"
)

type documentApi struct {
	deps ServerDeps
}

func registerDocumentAPI(g *echo.Group, identified echo.MiddlewareFunc, deps ServerDeps) {
	api := documentApi{deps: deps}

	dg := g.Group("/documents", identified)
	dg.GET("", api.query)
	dg.POST("", api.create, instructorMiddleware())

	ig := dg.Group("/:id")
	ig.GET("", api.retrieve)
	ig.PUT("", api.update, instructorMiddleware())
	ig.DELETE("", api.destroy, instructorMiddleware())
}

func (api *documentApi) create(ctx echo.Context) error {
	var data CreateDocumentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateDocumentRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	doc, err := api.deps.DocumentSvc.Create(ctx.Request().Context(), data.AssistantID, data.NewDocument)
	if err != nil {
		return errors.Wrap(err, "creating document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

// query serves the paginated, filterable listing the content browser
// scrolls through.
func (api *documentApi) query(ctx echo.Context) error {
	filter := new(document.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, document.Page{Items: []document.Document{}})
	}
	filter.Clean()
	pagination := new(Pagination)
	pagination.Bind(ctx)

	page, err := api.deps.DocumentSvc.Filter(ctx.Request().Context(), *filter, pagination.Limit, pagination.Offset)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *documentApi) retrieve(ctx echo.Context) error {
	doc, err := api.deps.DocumentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapDocumentErr(err, "finding document by ID")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orig, err := api.deps.DocumentSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return trapDocumentErr(err, "finding document by ID")
	}

	var data document.UpdateDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDocument")
	}
	if err = data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	doc, err := api.deps.DocumentSvc.Update(reqCtx, orig.ID, data)
	if err != nil {
		return trapDocumentErr(err, "updating document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	if err := api.deps.DocumentSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func trapDocumentErr(err error, msg string) error {
	if errors.Cause(err) == document.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

// CreateDocumentRequest wraps NewDocument with its target assistant.
type CreateDocumentRequest struct {
	AssistantID string `json:"assistant_id" validate:"required"`
	document.NewDocument
}

func (cd *CreateDocumentRequest) Validate(validate *validator.Validate) error {
	cd.AssistantID = core.CleanString(cd.AssistantID)
	if err := validate.StructPartial(cd, "AssistantID"); err != nil {
		return err
	}
	return cd.NewDocument.Validate(validate)
}
