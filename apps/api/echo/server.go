package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
	"github.com/trezcool/utetezi/core/group"
	"github.com/trezcool/utetezi/core/topic"
	"github.com/trezcool/utetezi/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger core.Logger
		// SignalShutdown is called to gracefully stop the app when an
		// unrecoverable error is caught.
		SignalShutdown func()

		UserSvc    user.Service
		TopicSvc   topic.Service
		GroupSvc   group.Service
		DefenseSvc defense.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerTopicAPI(v1, jwt, s.opts.TopicSvc)
	registerGroupAPI(v1, jwt, s.opts.GroupSvc)
	registerDefenseAPI(v1, jwt, s.opts.DefenseSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Utetezi API!")
}
