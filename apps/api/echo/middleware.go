package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core/chat"
)

// Identity headers set by the auth gateway in front of this API.
// Authentication itself happens upstream.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"

	ctxUserIDKey   = "userID"
	ctxUserRoleKey = "userRole"
)

// identityMiddleware requires the gateway identity headers and stashes
// them on the context. Role defaults to student.
func identityMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userID := ctx.Request().Header.Get(headerUserID)
			if userID == "" {
				return errUnauthorized
			}
			role := chat.Sender(ctx.Request().Header.Get(headerUserRole))
			if !role.Known() {
				role = chat.SenderStudent
			}
			ctx.Set(ctxUserIDKey, userID)
			ctx.Set(ctxUserRoleKey, role)
			return next(ctx)
		}
	}
}

// instructorMiddleware gates management endpoints.
func instructorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextRole(ctx) != chat.SenderInstructor {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func contextUserID(ctx echo.Context) string {
	id, _ := ctx.Get(ctxUserIDKey).(string)
	return id
}

func contextRole(ctx echo.Context) chat.Sender {
	role, _ := ctx.Get(ctxUserRoleKey).(chat.Sender)
	return role
}
