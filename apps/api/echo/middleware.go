package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// scheduleAdminMiddleware restricts timetable writes to school admins.
func scheduleAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := contextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.CanManageSchedule(p.SchoolID) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// schoolMemberMiddleware lets any authenticated principal of a school through.
func schoolMemberMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := contextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.CanViewSchool(p.SchoolID) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
