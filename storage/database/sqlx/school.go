package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core/school"
)

// absence dates and times are stored as native date/time columns; they are
// rendered back to the wire formats on the way out.
const absenceCols = `id, student_id, to_char(date, 'YYYY-MM-DD') AS date,
	to_char(start_time, 'HH24:MI:SS') AS start_time, to_char(end_time, 'HH24:MI:SS') AS end_time,
	subject_id, COALESCE(reason, '') AS reason, notified, created_at, created_by`

// qualifiedAbsenceCols is absenceCols with table-qualified names, for joins.
const qualifiedAbsenceCols = `absences.id, absences.student_id, to_char(absences.date, 'YYYY-MM-DD') AS date,
	to_char(absences.start_time, 'HH24:MI:SS') AS start_time, to_char(absences.end_time, 'HH24:MI:SS') AS end_time,
	absences.subject_id, COALESCE(absences.reason, '') AS reason, absences.notified, absences.created_at, absences.created_by`

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// trapNoRowsErr converts driver "no rows" errors to the domain lookup miss.
func trapNoRowsErr(err error, wrap string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, wrap)
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	err := repo.db.QueryRowContext(ctx,
		`INSERT INTO classes (name, level) VALUES ($1, $2) RETURNING id`,
		cls.Name, cls.Level,
	).Scan(&cls.ID)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	classes := []school.Class{}
	err := repo.db.SelectContext(ctx, &classes, `SELECT id, name, level FROM classes ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id int) (school.Class, error) {
	var cls school.Class
	err := repo.db.GetContext(ctx, &cls, `SELECT id, name, level FROM classes WHERE id = $1`, id)
	return cls, trapNoRowsErr(err, "selecting class")
}

func (repo *schoolRepository) GetClassByName(ctx context.Context, name string) (school.Class, error) {
	var cls school.Class
	err := repo.db.GetContext(ctx, &cls, `SELECT id, name, level FROM classes WHERE name = $1`, name)
	return cls, trapNoRowsErr(err, "selecting class")
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	err := repo.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`,
		sub.Name,
	).Scan(&sub.ID)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *schoolRepository) QueryAllSubjects(ctx context.Context) ([]school.Subject, error) {
	subjects := []school.Subject{}
	err := repo.db.SelectContext(ctx, &subjects, `SELECT id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return subjects, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id int) (school.Subject, error) {
	var sub school.Subject
	err := repo.db.GetContext(ctx, &sub, `SELECT id, name FROM subjects WHERE id = $1`, id)
	return sub, trapNoRowsErr(err, "selecting subject")
}

func (repo *schoolRepository) GetSubjectByName(ctx context.Context, name string) (school.Subject, error) {
	var sub school.Subject
	err := repo.db.GetContext(ctx, &sub, `SELECT id, name FROM subjects WHERE name = $1`, name)
	return sub, trapNoRowsErr(err, "selecting subject")
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	err := repo.db.QueryRowContext(ctx,
		`INSERT INTO students (firstname, lastname, class_id, parent_name, parent_email, parent_phone, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		st.Firstname, st.Lastname, st.ClassID, st.ParentName, st.ParentEmail, st.ParentPhone, st.Status,
	).Scan(&st.ID)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	students := []school.Student{}
	err := repo.db.SelectContext(ctx, &students,
		`SELECT id, firstname, lastname, class_id, parent_name, parent_email, parent_phone, status
		 FROM students ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo *schoolRepository) QueryStudentsByClass(ctx context.Context, classID int) ([]school.Student, error) {
	students := []school.Student{}
	err := repo.db.SelectContext(ctx, &students,
		`SELECT id, firstname, lastname, class_id, parent_name, parent_email, parent_phone, status
		 FROM students WHERE class_id = $1 ORDER BY id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	var st school.Student
	err := repo.db.GetContext(ctx, &st,
		`SELECT id, firstname, lastname, class_id, parent_name, parent_email, parent_phone, status
		 FROM students WHERE id = $1`, id)
	return st, trapNoRowsErr(err, "selecting student")
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE students SET firstname = $1, lastname = $2, class_id = $3, parent_name = $4,
		 parent_email = $5, parent_phone = $6, status = $7 WHERE id = $8`,
		st.Firstname, st.Lastname, st.ClassID, st.ParentName, st.ParentEmail, st.ParentPhone, st.Status, st.ID,
	)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	} else if n == 0 {
		return school.Student{}, school.ErrNotFound
	}
	return st, nil
}

// Absences

func (repo *schoolRepository) CreateAbsence(ctx context.Context, abs school.Absence) (school.Absence, error) {
	err := repo.db.QueryRowContext(ctx,
		`INSERT INTO absences (student_id, date, start_time, end_time, subject_id, reason, notified, created_at, created_by)
		 VALUES ($1, $2::date, $3::time, $4::time, $5, NULLIF($6, ''), $7, $8, $9) RETURNING id`,
		abs.StudentID, abs.Date, abs.StartTime, abs.EndTime, abs.SubjectID, abs.Reason, abs.Notified, abs.CreatedAt, abs.CreatedBy,
	).Scan(&abs.ID)
	if err != nil {
		return school.Absence{}, errors.Wrap(err, "inserting absence")
	}
	return abs, nil
}

func (repo *schoolRepository) QueryAllAbsences(ctx context.Context) ([]school.Absence, error) {
	absences := []school.Absence{}
	err := repo.db.SelectContext(ctx, &absences,
		`SELECT `+absenceCols+` FROM absences ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	return absences, nil
}

func (repo *schoolRepository) QueryAbsencesByStudent(ctx context.Context, studentID int) ([]school.Absence, error) {
	absences := []school.Absence{}
	err := repo.db.SelectContext(ctx, &absences,
		`SELECT `+absenceCols+` FROM absences WHERE student_id = $1 ORDER BY id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	return absences, nil
}

func (repo *schoolRepository) QueryAbsencesByClass(ctx context.Context, classID int) ([]school.Absence, error) {
	absences := []school.Absence{}
	err := repo.db.SelectContext(ctx, &absences,
		`SELECT `+qualifiedAbsenceCols+` FROM absences
		 JOIN students ON students.id = absences.student_id
		 WHERE students.class_id = $1 ORDER BY absences.id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	return absences, nil
}

func (repo *schoolRepository) QueryAbsencesByDate(ctx context.Context, date string) ([]school.Absence, error) {
	absences := []school.Absence{}
	err := repo.db.SelectContext(ctx, &absences,
		`SELECT `+absenceCols+` FROM absences WHERE date = $1::date ORDER BY id`, date)
	if err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	return absences, nil
}

func (repo *schoolRepository) QueryRecentAbsences(ctx context.Context, limit int) ([]school.Absence, error) {
	absences := []school.Absence{}
	err := repo.db.SelectContext(ctx, &absences,
		`SELECT `+absenceCols+` FROM absences ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	return absences, nil
}

func (repo *schoolRepository) GetAbsenceByID(ctx context.Context, id int) (school.Absence, error) {
	var abs school.Absence
	err := repo.db.GetContext(ctx, &abs,
		`SELECT `+absenceCols+` FROM absences WHERE id = $1`, id)
	return abs, trapNoRowsErr(err, "selecting absence")
}

func (repo *schoolRepository) SetAbsenceNotified(ctx context.Context, id int, notified bool) (school.Absence, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE absences SET notified = $1 WHERE id = $2`, notified, id)
	if err != nil {
		return school.Absence{}, errors.Wrap(err, "updating absence")
	}
	if n, err := res.RowsAffected(); err != nil {
		return school.Absence{}, errors.Wrap(err, "updating absence")
	} else if n == 0 {
		return school.Absence{}, school.ErrNotFound
	}
	return repo.GetAbsenceByID(ctx, id)
}

// Counts

func (repo *schoolRepository) CountAbsencesByDate(ctx context.Context, date string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM absences WHERE date = $1::date`, date)
	if err != nil {
		return 0, errors.Wrap(err, "counting absences")
	}
	return count, nil
}

func (repo *schoolRepository) CountAbsencesBetween(ctx context.Context, from, to string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM absences WHERE date >= $1::date AND date < $2::date`, from, to)
	if err != nil {
		return 0, errors.Wrap(err, "counting absences")
	}
	return count, nil
}

func (repo *schoolRepository) CountAbsencesNotified(ctx context.Context) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM absences WHERE notified`)
	if err != nil {
		return 0, errors.Wrap(err, "counting absences")
	}
	return count, nil
}
