package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/user"
)

const (
	sessionName    = "gestiabsences"
	sessionUserKey = "user_id"
	ctxUserKey     = "ctxUser"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return validate.Struct(r)
}

func (s *Server) registerAuthAPI(g *echo.Group) {
	g.POST("/register", s.userRegister)
	g.POST("/login", s.userLogin)
	g.POST("/logout", s.userLogout, s.requireAuth)
	g.GET("/user", s.userRetrieve, s.requireAuth)
}

// requireAuth gates a route behind the session: 401 with an empty body when no
// valid logged in user is attached to the request.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		session, err := s.store.Get(ctx.Request(), sessionName)
		if err != nil {
			return ctx.NoContent(http.StatusUnauthorized)
		}
		uid, ok := session.Values[sessionUserKey].(int)
		if !ok {
			return ctx.NoContent(http.StatusUnauthorized)
		}
		usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), uid)
		if err != nil {
			// stale session; the user no longer exists
			s.clearSession(ctx)
			return ctx.NoContent(http.StatusUnauthorized)
		}
		ctx.Set(ctxUserKey, usr)
		return next(ctx)
	}
}

func (s *Server) saveSession(ctx echo.Context, userID int) error {
	session, _ := s.store.Get(ctx.Request(), sessionName)
	session.Values[sessionUserKey] = userID
	return errors.Wrap(session.Save(ctx.Request(), ctx.Response()), "saving session")
}

func (s *Server) clearSession(ctx echo.Context) {
	session, _ := s.store.Get(ctx.Request(), sessionName)
	delete(session.Values, sessionUserKey)
	session.Options.MaxAge = -1
	_ = session.Save(ctx.Request(), ctx.Response())
}

// Handlers

func (s *Server) userRegister(ctx echo.Context) error {
	data := new(user.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}

	// log the new user in right away
	if err := s.saveSession(ctx, usr.ID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) userLogin(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return echo.NewHTTPError(http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
		}
		return err
	}

	if err := s.saveSession(ctx, usr.ID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) userLogout(ctx echo.Context) error {
	s.clearSession(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Déconnexion réussie"})
}

func (s *Server) userRetrieve(ctx echo.Context) error {
	usr, ok := ctx.Get(ctxUserKey).(user.User)
	if !ok {
		return ctx.NoContent(http.StatusUnauthorized)
	}
	return ctx.JSON(http.StatusOK, usr)
}
