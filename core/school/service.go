package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core"
)

var (
	// ErrNotFound reports a direct entity lookup miss.
	ErrNotFound = errors.New("not found")

	// reference errors; user-facing, surfaced as 400s
	errStudentRef  = errors.New("L'élève spécifié n'existe pas")
	errSubjectRef  = errors.New("La matière spécifiée n'existe pas")
	errClassRef    = errors.New("La classe spécifiée n'existe pas")
	errClassName   = errors.New("Une classe avec ce nom existe déjà")
	errSubjectName = errors.New("Une matière avec ce nom existe déjà")
)

type (
	// Repository is the persistence contract for the school directory.
	// Implementations assign fresh monotonically increasing ids on create,
	// return entities in insertion (id) order and perform no uniqueness
	// enforcement; unique names are pre-checked by the Service.
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		GetClassByName(ctx context.Context, name string) (Class, error)

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		GetSubjectByName(ctx context.Context, name string) (Subject, error)

		CreateStudent(ctx context.Context, st Student) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		QueryStudentsByClass(ctx context.Context, classID int) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		// UpdateStudent replaces the full record; ErrNotFound if the id is absent.
		UpdateStudent(ctx context.Context, st Student) (Student, error)

		CreateAbsence(ctx context.Context, abs Absence) (Absence, error)
		QueryAllAbsences(ctx context.Context) ([]Absence, error)
		QueryAbsencesByStudent(ctx context.Context, studentID int) ([]Absence, error)
		QueryAbsencesByClass(ctx context.Context, classID int) ([]Absence, error)
		QueryAbsencesByDate(ctx context.Context, date string) ([]Absence, error)
		QueryRecentAbsences(ctx context.Context, limit int) ([]Absence, error)
		GetAbsenceByID(ctx context.Context, id int) (Absence, error)
		SetAbsenceNotified(ctx context.Context, id int, notified bool) (Absence, error)

		CountAbsencesByDate(ctx context.Context, date string) (int, error)
		// CountAbsencesBetween counts absences with from <= date < to (ISO dates).
		CountAbsencesBetween(ctx context.Context, from, to string) (int, error)
		CountAbsencesNotified(ctx context.Context) (int, error)
	}

	Service struct {
		repo    Repository
		smsSvc  core.SMSService
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

func NewService(
	repo Repository,
	smsSvc core.SMSService,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		smsSvc:  smsSvc,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// Classes & Subjects

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetClassByName(ctx, nc.Name); err == nil {
		return Class{}, core.NewValidationError(errClassName, core.FieldError{Field: "name", Error: errClassName.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Class{}, errors.Wrap(err, "checking class name")
	}
	return svc.repo.CreateClass(ctx, Class{Name: nc.Name, Level: nc.Level})
}

func (svc *Service) QueryClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetSubjectByName(ctx, ns.Name); err == nil {
		return Subject{}, core.NewValidationError(errSubjectName, core.FieldError{Field: "name", Error: errSubjectName.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Subject{}, errors.Wrap(err, "checking subject name")
	}
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name})
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QueryAllSubjects(ctx)
}

// Students

func (svc *Service) resolveClass(ctx context.Context, id int) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Class{}, core.NewValidationError(errClassRef, core.FieldError{Field: "class_id", Error: errClassRef.Error()})
		}
		return Class{}, errors.Wrap(err, "resolving class")
	}
	return cls, nil
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.resolveClass(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{
		Firstname:   ns.Firstname,
		Lastname:    ns.Lastname,
		ClassID:     ns.ClassID,
		ParentName:  ns.ParentName,
		ParentEmail: ns.ParentEmail,
		ParentPhone: ns.ParentPhone,
		Status:      ns.Status,
	})
}

// UpdateStudent replaces the student record identified by id with the provided
// fields; ErrNotFound when the id is unknown.
func (svc *Service) UpdateStudent(ctx context.Context, id int, ns NewStudent) (StudentDetails, error) {
	if _, err := svc.repo.GetStudentByID(ctx, id); err != nil {
		return StudentDetails{}, err
	}
	if _, err := svc.resolveClass(ctx, ns.ClassID); err != nil {
		return StudentDetails{}, err
	}
	st, err := svc.repo.UpdateStudent(ctx, Student{
		ID:          id,
		Firstname:   ns.Firstname,
		Lastname:    ns.Lastname,
		ClassID:     ns.ClassID,
		ParentName:  ns.ParentName,
		ParentEmail: ns.ParentEmail,
		ParentPhone: ns.ParentPhone,
		Status:      ns.Status,
	})
	if err != nil {
		return StudentDetails{}, errors.Wrap(err, "updating student")
	}
	return svc.enrichStudent(ctx, st)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (StudentDetails, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return StudentDetails{}, err
	}
	return svc.enrichStudent(ctx, st)
}

// QueryStudents returns all students, or the students of one class when
// classID > 0, joined with class names and absence counts.
func (svc *Service) QueryStudents(ctx context.Context, classID int) ([]StudentDetails, error) {
	var students []Student
	var err error
	if classID > 0 {
		students, err = svc.repo.QueryStudentsByClass(ctx, classID)
	} else {
		students, err = svc.repo.QueryAllStudents(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	classes, err := svc.classMap(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]StudentDetails, 0, len(students))
	for _, st := range students {
		absences, err := svc.repo.QueryAbsencesByStudent(ctx, st.ID)
		if err != nil {
			return nil, errors.Wrap(err, "counting absences")
		}
		details = append(details, StudentDetails{
			Student:       st,
			Class:         classSummary(classes[st.ClassID]),
			AbsencesCount: len(absences),
		})
	}
	return details, nil
}

func (svc *Service) enrichStudent(ctx context.Context, st Student) (StudentDetails, error) {
	absences, err := svc.repo.QueryAbsencesByStudent(ctx, st.ID)
	if err != nil {
		return StudentDetails{}, errors.Wrap(err, "counting absences")
	}
	cls, err := svc.repo.GetClassByID(ctx, st.ClassID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return StudentDetails{}, errors.Wrap(err, "resolving class")
	}
	return StudentDetails{
		Student:       st,
		Class:         classSummary(cls),
		AbsencesCount: len(absences),
	}, nil
}

// Absences

// CreateAbsence records a single absence event: validate references, persist
// with notified=false, optionally notify the parent and reconcile the notified
// flag with the dispatch outcome. Once the record is persisted the request
// succeeds regardless of the notification outcome.
func (svc *Service) CreateAbsence(ctx context.Context, na NewAbsence, actorID int, sendNotification bool) (AbsenceDetails, error) {
	student, err := svc.repo.GetStudentByID(ctx, na.StudentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return AbsenceDetails{}, core.NewValidationError(errStudentRef, core.FieldError{Field: "student_id", Error: errStudentRef.Error()})
		}
		return AbsenceDetails{}, errors.Wrap(err, "resolving student")
	}
	subject, err := svc.repo.GetSubjectByID(ctx, na.SubjectID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return AbsenceDetails{}, core.NewValidationError(errSubjectRef, core.FieldError{Field: "subject_id", Error: errSubjectRef.Error()})
		}
		return AbsenceDetails{}, errors.Wrap(err, "resolving subject")
	}

	// durability commit point: the absence exists from here on
	abs, err := svc.repo.CreateAbsence(ctx, Absence{
		StudentID: na.StudentID,
		Date:      na.Date,
		StartTime: na.StartTime,
		EndTime:   na.EndTime,
		SubjectID: na.SubjectID,
		Reason:    na.Reason,
		Notified:  false,
		CreatedAt: time.Now().UTC(),
		CreatedBy: actorID,
	})
	if err != nil {
		return AbsenceDetails{}, errors.Wrap(err, "creating absence")
	}

	// class name is best-effort display data; a missing class never fails the request
	className := classNamePlaceholder
	cls, err := svc.repo.GetClassByID(ctx, student.ClassID)
	if err == nil {
		className = cls.Name
	} else if errors.Cause(err) != ErrNotFound {
		return AbsenceDetails{}, errors.Wrap(err, "resolving class")
	}

	if sendNotification {
		if svc.notifyParent(ctx, abs, student, className, subject.Name) {
			if updated, err := svc.repo.SetAbsenceNotified(ctx, abs.ID, true); err == nil {
				abs = updated
			} else {
				svc.logger.Error("reconciling notified flag", errors.Wrap(err, "reconciling notified flag"))
			}
		}
	}

	return AbsenceDetails{
		Absence: abs,
		Student: studentSummary(student),
		Class:   ClassSummary{ID: cls.ID, Name: className},
		Subject: subjectSummary(subject),
	}, nil
}

// QueryAbsences applies the first matching filter criterion (student, class,
// date) or returns all absences, enriched for display.
func (svc *Service) QueryAbsences(ctx context.Context, filter AbsenceFilter) ([]AbsenceDetails, error) {
	var absences []Absence
	var err error
	switch {
	case filter.StudentID > 0:
		absences, err = svc.repo.QueryAbsencesByStudent(ctx, filter.StudentID)
	case filter.ClassID > 0:
		absences, err = svc.repo.QueryAbsencesByClass(ctx, filter.ClassID)
	case filter.Date != "":
		absences, err = svc.repo.QueryAbsencesByDate(ctx, filter.Date)
	default:
		absences, err = svc.repo.QueryAllAbsences(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}
	return svc.enrichAbsences(ctx, absences)
}

func (svc *Service) QueryRecentAbsences(ctx context.Context, limit int) ([]AbsenceDetails, error) {
	absences, err := svc.repo.QueryRecentAbsences(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent absences")
	}
	return svc.enrichAbsences(ctx, absences)
}

// QueryStudentAbsences returns the enriched absences of one student;
// ErrNotFound when the student is unknown.
func (svc *Service) QueryStudentAbsences(ctx context.Context, studentID int) ([]AbsenceDetails, error) {
	if _, err := svc.repo.GetStudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	absences, err := svc.repo.QueryAbsencesByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}
	return svc.enrichAbsences(ctx, absences)
}

// Stats

// DashboardStats aggregates counts for "today" and the ISO week (Monday start)
// containing now.
func (svc *Service) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	today := now.Format("2006-01-02")
	todayCount, err := svc.repo.CountAbsencesByDate(ctx, today)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting today's absences")
	}

	weekStart := now.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	weekEnd := weekStart.AddDate(0, 0, 7)
	weekCount, err := svc.repo.CountAbsencesBetween(ctx, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting the week's absences")
	}

	notified, err := svc.repo.CountAbsencesNotified(ctx)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting notifications")
	}

	return DashboardStats{
		AbsencesToday:     todayCount,
		AbsencesWeek:      weekCount,
		NotificationsSent: notified,
	}, nil
}

// enrichment helpers

func (svc *Service) classMap(ctx context.Context) (map[int]Class, error) {
	classes, err := svc.repo.QueryAllClasses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	m := make(map[int]Class, len(classes))
	for _, c := range classes {
		m[c.ID] = c
	}
	return m, nil
}

func (svc *Service) enrichAbsences(ctx context.Context, absences []Absence) ([]AbsenceDetails, error) {
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	subjects, err := svc.repo.QueryAllSubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	classes, err := svc.classMap(ctx)
	if err != nil {
		return nil, err
	}

	studentMap := make(map[int]Student, len(students))
	for _, s := range students {
		studentMap[s.ID] = s
	}
	subjectMap := make(map[int]Subject, len(subjects))
	for _, s := range subjects {
		subjectMap[s.ID] = s
	}

	details := make([]AbsenceDetails, 0, len(absences))
	for _, abs := range absences {
		student := studentMap[abs.StudentID]
		details = append(details, AbsenceDetails{
			Absence: abs,
			Student: studentSummary(student),
			Class:   classSummary(classes[student.ClassID]),
			Subject: subjectSummary(subjectMap[abs.SubjectID]),
		})
	}
	return details, nil
}

func studentSummary(st Student) StudentSummary {
	return StudentSummary{ID: st.ID, Firstname: st.Firstname, Lastname: st.Lastname}
}

func classSummary(cls Class) ClassSummary {
	name := cls.Name
	if name == "" {
		name = classNamePlaceholder
	}
	return ClassSummary{ID: cls.ID, Name: name}
}

func subjectSummary(sub Subject) SubjectSummary {
	name := sub.Name
	if name == "" {
		name = subjectNamePlaceholder
	}
	return SubjectSummary{ID: sub.ID, Name: name}
}
