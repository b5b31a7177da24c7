package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
)

var defenseSortFields = []string{"name", "defense_code", "status", "date", "start_time", "created_at", "updated_at"}

type defenseApi struct {
	svc defense.Service
}

func registerDefenseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc defense.Service) {
	api := defenseApi{svc: svc}

	dg := g.Group("/defenses", jwt)
	dg.POST("", api.create, adminMiddleware())
	dg.GET("", api.query)
	dg.GET("/check-time", api.checkTime)
	dg.GET("/me", api.queryMine, roleMiddleware(func(claims Claims) bool { return claims.IsLecturer || claims.IsAdmin }))
	dg.GET("/:id", api.retrieve)
	dg.PATCH("/:id", api.update, adminMiddleware())
	dg.DELETE("/:id", api.destroy, adminMiddleware())

	lg := g.Group("/lecturer_defenses", jwt)
	lg.PATCH("/:id", api.recordScore)
}

func (api *defenseApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data defense.NewDefense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDefense")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	def, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating defense")
	}
	return ctx.JSON(http.StatusCreated, def)
}

func (api *defenseApi) query(ctx echo.Context) error {
	filter := new(defense.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []defense.Defense{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, defenseSortFields...)

	defs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying defenses")
	}
	if defs == nil {
		defs = []defense.Defense{}
	}
	return ctx.JSON(http.StatusOK, defs)
}

func (api *defenseApi) checkTime(ctx echo.Context) error {
	var data CheckTimeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckTimeRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	conflicts, err := api.svc.CheckAvailability(
		ctx.Request().Context(), data.date, data.block, data.LecturerIDs, data.ExcludeDefenseID,
	)
	if err != nil {
		return errors.Wrap(err, "checking availability")
	}
	if conflicts == nil {
		conflicts = []defense.Conflict{}
	}
	return ctx.JSON(http.StatusOK, CheckTimeResponse{
		Conflict:  len(conflicts) > 0,
		Conflicts: conflicts,
	})
}

func (api *defenseApi) queryMine(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	defs, err := api.svc.QueryForLecturer(ctx.Request().Context(), principal.ID)
	if err != nil {
		return errors.Wrap(err, "querying lecturer defenses")
	}
	if defs == nil {
		defs = []defense.Defense{}
	}
	return ctx.JSON(http.StatusOK, defs)
}

func (api *defenseApi) retrieve(ctx echo.Context) error {
	def, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == defense.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding defense by ID")
	}
	return ctx.JSON(http.StatusOK, def)
}

func (api *defenseApi) update(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data defense.UpdateDefense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDefense")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	def, err := api.svc.Update(ctx.Request().Context(), principal, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == defense.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating defense")
	}
	return ctx.JSON(http.StatusOK, def)
}

func (api *defenseApi) destroy(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		if errors.Cause(err) == defense.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting defense")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Defense deleted."})
}

func (api *defenseApi) recordScore(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data defense.ScoreUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ld, err := api.svc.RecordScore(ctx.Request().Context(), principal, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == defense.ErrScoreNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "recording score")
	}
	return ctx.JSON(http.StatusOK, ld)
}

type (
	CheckTimeRequest struct {
		LecturerIDs      []string `json:"lecturer_id" query:"lecturer_id" validate:"required,min=1,unique"`
		Date             string   `json:"date" query:"date" validate:"required,datetime=2006-01-02"`
		StartTime        string   `json:"start_time" query:"start_time" validate:"required"`
		EndTime          string   `json:"end_time" query:"end_time" validate:"required"`
		ExcludeDefenseID string   `json:"exclude_defense_id" query:"exclude_defense_id"`

		// populated by Validate
		date  core.Date
		block core.TimeBlock
	}

	CheckTimeResponse struct {
		Conflict  bool               `json:"conflict"`
		Conflicts []defense.Conflict `json:"conflicts"`
	}
)

// Validate accepts any well-formed block here, scheduled or not, so callers
// can probe arbitrary slots.
func (ct *CheckTimeRequest) Validate() error {
	if err := core.Validate.Struct(ct); err != nil {
		return err
	}

	date, err := core.ParseDate(ct.Date)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
	}
	start, err := core.ParseTimeOfDay(ct.StartTime)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "start_time", Error: "invalid time"})
	}
	end, err := core.ParseTimeOfDay(ct.EndTime)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "end_time", Error: "invalid time"})
	}
	block := core.TimeBlock{Start: start, End: end}
	if !block.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "start_time", Error: "start time must be before end time"})
	}

	ct.date = date
	ct.block = block
	return nil
}
