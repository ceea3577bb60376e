package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

var (
	limitParam  = "limit"
	offsetParam = "offset"
)

// Pagination binds the limit/offset query params; zero values let the
// service apply its defaults.
type Pagination struct {
	Limit  int
	Offset int
}

func (p *Pagination) Bind(ctx echo.Context) {
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil && v > 0 {
		p.Limit = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(offsetParam)); err == nil && v > 0 {
		p.Offset = v
	}
}
