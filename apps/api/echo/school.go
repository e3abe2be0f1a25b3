package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gestiabsences/backend/core/school"
	"github.com/gestiabsences/backend/core/user"
)

const defaultRecentLimit = 5

func (s *Server) registerSchoolAPI(g *echo.Group) {
	g.POST("/absences", s.absenceCreate)
	g.GET("/absences", s.absenceQuery)
	g.GET("/absences/recent", s.absenceQueryRecent)

	g.GET("/students", s.studentQuery)
	g.POST("/students", s.studentCreate)
	g.GET("/students/:id", s.studentRetrieve)
	g.PATCH("/students/:id", s.studentUpdate)
	g.GET("/students/:id/absences", s.studentAbsences)

	g.GET("/classes", s.classQuery)
	g.POST("/classes", s.classCreate)
	g.GET("/subjects", s.subjectQuery)
	g.POST("/subjects", s.subjectCreate)

	g.GET("/stats/dashboard", s.statsDashboard)
}

// absenceCreateRequest carries the absence payload plus the notification
// opt-in flag; no SMS goes out unless the caller asks for it.
type absenceCreateRequest struct {
	school.NewAbsence
	SendNotification bool `json:"send_notification"`
}

// Absences

func (s *Server) absenceCreate(ctx echo.Context) error {
	data := new(absenceCreateRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.NewAbsence.Validate(s.deps.Validate); err != nil {
		return err
	}

	var actorID int
	if usr, ok := ctx.Get(ctxUserKey).(user.User); ok {
		actorID = usr.ID
	}
	details, err := s.deps.SchoolSvc.CreateAbsence(ctx.Request().Context(), data.NewAbsence, actorID, data.SendNotification)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, details)
}

func (s *Server) absenceQuery(ctx echo.Context) error {
	filter := new(school.AbsenceFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	details, err := s.deps.SchoolSvc.QueryAbsences(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *Server) absenceQueryRecent(ctx echo.Context) error {
	limit := defaultRecentLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	details, err := s.deps.SchoolSvc.QueryRecentAbsences(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

// Students

func (s *Server) studentQuery(ctx echo.Context) error {
	var classID int
	if raw := ctx.QueryParam("class_id"); raw != "" {
		classID, _ = strconv.Atoi(raw)
	}
	details, err := s.deps.SchoolSvc.QueryStudents(ctx.Request().Context(), classID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *Server) studentCreate(ctx echo.Context) error {
	data := new(school.NewStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	st, err := s.deps.SchoolSvc.CreateStudent(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (s *Server) studentRetrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	details, err := s.deps.SchoolSvc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *Server) studentUpdate(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	data := new(school.NewStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	details, err := s.deps.SchoolSvc.UpdateStudent(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *Server) studentAbsences(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	details, err := s.deps.SchoolSvc.QueryStudentAbsences(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

// Classes & Subjects

func (s *Server) classQuery(ctx echo.Context) error {
	classes, err := s.deps.SchoolSvc.QueryClasses(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (s *Server) classCreate(ctx echo.Context) error {
	data := new(school.NewClass)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	cls, err := s.deps.SchoolSvc.CreateClass(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (s *Server) subjectQuery(ctx echo.Context) error {
	subjects, err := s.deps.SchoolSvc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (s *Server) subjectCreate(ctx echo.Context) error {
	data := new(school.NewSubject)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	sub, err := s.deps.SchoolSvc.CreateSubject(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// Stats

func (s *Server) statsDashboard(ctx echo.Context) error {
	stats, err := s.deps.SchoolSvc.DashboardStats(ctx.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, school.ErrNotFound
	}
	return id, nil
}
