package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gestiabsences/backend/core"
)

// Student statuses
const (
	StatusActive   = "actif"
	StatusInactive = "inactif"
)

type (
	Class struct {
		ID    int    `json:"id" db:"id"`
		Name  string `json:"name" db:"name"`
		Level string `json:"level" db:"level"`
	}

	Subject struct {
		ID   int    `json:"id" db:"id"`
		Name string `json:"name" db:"name"`
	}

	Student struct {
		ID          int    `json:"id" db:"id"`
		Firstname   string `json:"firstname" db:"firstname"`
		Lastname    string `json:"lastname" db:"lastname"`
		ClassID     int    `json:"class_id" db:"class_id"`
		ParentName  string `json:"parent_name" db:"parent_name"`
		ParentEmail string `json:"parent_email" db:"parent_email"`
		ParentPhone string `json:"parent_phone" db:"parent_phone"`
		Status      string `json:"status" db:"status"`
	}

	// Absence dates are calendar dates ("2006-01-02") and times wall-clock
	// ("15:04" or "15:04:05"); neither carries a timezone.
	Absence struct {
		ID        int       `json:"id" db:"id"`
		StudentID int       `json:"student_id" db:"student_id"`
		Date      string    `json:"date" db:"date"`
		StartTime string    `json:"start_time" db:"start_time"`
		EndTime   string    `json:"end_time" db:"end_time"`
		SubjectID int       `json:"subject_id" db:"subject_id"`
		Reason    string    `json:"reason,omitempty" db:"reason"`
		Notified  bool      `json:"notified" db:"notified"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
		CreatedBy int       `json:"created_by" db:"created_by"`
	}
)

func (s Student) FullName() string { return s.Firstname + " " + s.Lastname }

// Display projections joined onto absences and students.
type (
	StudentSummary struct {
		ID        int    `json:"id"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	}

	ClassSummary struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	SubjectSummary struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	// AbsenceDetails is an Absence joined with its student, class and subject
	// summaries for display.
	AbsenceDetails struct {
		Absence
		Student StudentSummary `json:"student"`
		Class   ClassSummary   `json:"class"`
		Subject SubjectSummary `json:"subject"`
	}

	StudentDetails struct {
		Student
		Class         ClassSummary `json:"class"`
		AbsencesCount int          `json:"absences_count"`
	}

	DashboardStats struct {
		AbsencesToday     int `json:"absences_today"`
		AbsencesWeek      int `json:"absences_week"`
		NotificationsSent int `json:"notifications_sent"`
	}
)

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Level = core.CleanString(nc.Level)
	return validate.Struct(nc)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// NewStudent contains information needed to create a Student; it is also the
// full-record replacement shape for updates.
type NewStudent struct {
	Firstname   string `json:"firstname" validate:"required"`
	Lastname    string `json:"lastname" validate:"required"`
	ClassID     int    `json:"class_id" validate:"required"`
	ParentName  string `json:"parent_name" validate:"required"`
	ParentEmail string `json:"parent_email" validate:"required,email"`
	ParentPhone string `json:"parent_phone" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=actif inactif"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Firstname = core.CleanString(ns.Firstname)
	ns.Lastname = core.CleanString(ns.Lastname)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	if ns.Status == "" {
		ns.Status = StatusActive
	}
	return validate.Struct(ns)
}

// NewAbsence contains information needed to record an Absence. Any notified
// flag supplied by the caller is ignored; new absences always start with
// notified=false.
type NewAbsence struct {
	StudentID int    `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	SubjectID int    `json:"subject_id" validate:"required"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

func (na *NewAbsence) Validate(validate *validator.Validate) error {
	na.Reason = core.CleanString(na.Reason)
	return validate.Struct(na)
}

// AbsenceFilter selects absences by exactly one criterion; precedence is
// student, then class, then date.
type AbsenceFilter struct {
	StudentID int    `query:"student_id"`
	ClassID   int    `query:"class_id"`
	Date      string `query:"date"`
}

func (f AbsenceFilter) IsEmpty() bool {
	return f.StudentID == 0 && f.ClassID == 0 && f.Date == ""
}
