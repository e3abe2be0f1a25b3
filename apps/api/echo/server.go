package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/school"
	"github.com/gestiabsences/backend/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		SchoolSvc  *school.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps  ServerDeps
		app   *echo.Echo
		store *sessions.CookieStore

		serverErrors chan error
		shutdownChan chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:         deps,
		app:          echo.New(),
		serverErrors: make(chan error, 1),
		shutdownChan: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownChan, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	secret := []byte(conf.SecretKey)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	s.store = sessions.NewCookieStore(secret)
	s.store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.SessionMaxAge / time.Second),
		HttpOnly: true,
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.HideBanner = true

	s.app.GET("/", home)

	s.registerAuthAPI(s.app.Group(""))
	s.registerSchoolAPI(s.app.Group("", s.requireAuth))
}

// Start runs the listener; the outcome is reported on Errors.
func (s *Server) Start() {
	s.serverErrors <- s.app.Start(s.deps.Conf.Server.Host)
}

func (s *Server) Errors() <-chan error            { return s.serverErrors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdownChan }

func (s *Server) signalShutdown() {
	s.shutdownChan <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.app.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to GestiAbsences API!")
}
