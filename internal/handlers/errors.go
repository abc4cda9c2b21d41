package handlers

import (
	"github.com/bobmate/backend/internal/apperrors"
	"github.com/labstack/echo/v4"
)

// domainError turns a service-layer error into the HTTP response shape.
// Each error kind keeps its own message so the client can tell a full
// request (pick another) from an invalid transition (nothing to do).
func domainError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
}
