package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utetezi/core/topic"
)

var topicSortFields = []string{"name", "topic_code", "status", "created_at", "updated_at"}

type topicApi struct {
	svc topic.Service
}

func registerTopicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc topic.Service) {
	api := topicApi{svc: svc}

	tg := g.Group("/topics", jwt)
	tg.POST("", api.create)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PATCH("/:id", api.update)
	tg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *topicApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data topic.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *topicApi) query(ctx echo.Context) error {
	filter := new(topic.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []topic.Topic{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, topicSortFields...)

	topics, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []topic.Topic{}
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *topicApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == topic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding topic by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *topicApi) update(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data topic.UpdateTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTopic")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), principal, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == topic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating topic")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *topicApi) destroy(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		if errors.Cause(err) == topic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting topic")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Topic deleted."})
}
