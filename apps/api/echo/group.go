package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utetezi/core/group"
)

var groupSortFields = []string{"name", "group_code", "status", "def_status", "created_at", "updated_at"}

type groupApi struct {
	svc group.Service
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc group.Service) {
	api := groupApi{svc: svc}

	gg := g.Group("/groups", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.GET("/:id", api.retrieve)
	gg.PATCH("/:id", api.update)
	gg.DELETE("/:id", api.destroy, adminMiddleware())
	gg.POST("/:id/join", api.join)
	gg.POST("/:id/leave", api.leave)
}

func (api *groupApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) query(ctx echo.Context) error {
	filter := new(group.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []group.Group{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, groupSortFields...)

	groups, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data group.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grp, err := api.svc.Update(ctx.Request().Context(), principal, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting group")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Group deleted."})
}

func (api *groupApi) join(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Join(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		switch errors.Cause(err) {
		case group.ErrNotFound:
			return errHttpNotFound
		case group.ErrAlreadyMember:
			return echo.NewHTTPError(http.StatusConflict, group.ErrAlreadyMember.Error())
		}
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Joined group."})
}

func (api *groupApi) leave(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Leave(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		switch errors.Cause(err) {
		case group.ErrNotFound:
			return errHttpNotFound
		case group.ErrNotMember:
			return echo.NewHTTPError(http.StatusConflict, group.ErrNotMember.Error())
		}
		return errors.Wrap(err, "leaving group")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Left group."})
}
