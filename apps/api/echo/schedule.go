package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type scheduleApi struct {
	svc schedule.ServiceInterface
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc schedule.ServiceInterface) {
	api := scheduleApi{svc: svc}

	tg := g.Group("/timetable", jwt, schoolMemberMiddleware())
	admin := scheduleAdminMiddleware()

	tg.POST("", api.create, admin)
	tg.POST("/week", api.createWeek, admin)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PATCH("/:id", api.update, admin)
	tg.DELETE("/:id", api.destroy, admin)

	g.GET("/classes/:id/timetable", api.byClass, jwt, schoolMemberMiddleware())
}

// Handlers

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	entry, err := api.svc.Create(ctx.Request().Context(), p.SchoolID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *scheduleApi) createWeek(ctx echo.Context) error {
	var data schedule.NewWeek
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWeek")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	week, err := api.svc.CreateWeek(ctx.Request().Context(), p.SchoolID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, week)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Entry{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	entries, err := api.svc.Query(ctx.Request().Context(), p.SchoolID, *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	if entries == nil {
		entries = []schedule.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	entry, err := api.svc.GetByID(ctx.Request().Context(), p.SchoolID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data schedule.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}

	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	entry, err := api.svc.Update(ctx.Request().Context(), p.SchoolID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	if err := api.svc.Delete(ctx.Request().Context(), p.SchoolID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) byClass(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var day schedule.Weekday
	if raw := ctx.QueryParam("day"); raw != "" {
		day = schedule.Weekday(strings.ToUpper(core.CleanString(raw)))
		if !day.Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: "day", Error: "invalid weekday"})
		}
	}

	timetable, err := api.svc.ByClass(ctx.Request().Context(), p.SchoolID, ctx.Param("id"), day)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, timetable)
}
