package inmem

import (
	"context"
	"sort"

	"github.com/gestiabsences/backend/core/school"
)

// schoolRepository implements school.Repository on top of DB.
type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.classSeq++
	cls.ID = repo.db.classSeq
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]int, 0, len(repo.db.classes))
	for id := range repo.db.classes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	classes := make([]school.Class, 0, len(ids))
	for _, id := range ids {
		classes = append(classes, repo.db.classes[id])
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id int) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok {
		return school.Class{}, school.ErrNotFound
	}
	return cls, nil
}

func (repo *schoolRepository) GetClassByName(ctx context.Context, name string) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Name == name {
			return cls, nil
		}
	}
	return school.Class{}, school.ErrNotFound
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.subjectSeq++
	sub.ID = repo.db.subjectSeq
	repo.db.subjects[sub.ID] = sub
	return sub, nil
}

func (repo *schoolRepository) QueryAllSubjects(ctx context.Context) ([]school.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]int, 0, len(repo.db.subjects))
	for id := range repo.db.subjects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subjects := make([]school.Subject, 0, len(ids))
	for _, id := range ids {
		subjects = append(subjects, repo.db.subjects[id])
	}
	return subjects, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id int) (school.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sub, ok := repo.db.subjects[id]
	if !ok {
		return school.Subject{}, school.ErrNotFound
	}
	return sub, nil
}

func (repo *schoolRepository) GetSubjectByName(ctx context.Context, name string) (school.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.subjects {
		if sub.Name == name {
			return sub, nil
		}
	}
	return school.Subject{}, school.ErrNotFound
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.studentSeq++
	st.ID = repo.db.studentSeq
	repo.db.students[st.ID] = st
	return st, nil
}

func (repo *schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryStudents(func(school.Student) bool { return true }), nil
}

func (repo *schoolRepository) QueryStudentsByClass(ctx context.Context, classID int) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryStudents(func(st school.Student) bool { return st.ClassID == classID }), nil
}

// queryStudents must be called with the lock held.
func (repo *schoolRepository) queryStudents(match func(school.Student) bool) []school.Student {
	ids := make([]int, 0, len(repo.db.students))
	for id, st := range repo.db.students {
		if match(st) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	students := make([]school.Student, 0, len(ids))
	for _, id := range ids {
		students = append(students, repo.db.students[id])
	}
	return students
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	st, ok := repo.db.students[id]
	if !ok {
		return school.Student{}, school.ErrNotFound
	}
	return st, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[st.ID]; !ok {
		return school.Student{}, school.ErrNotFound
	}
	repo.db.students[st.ID] = st
	return st, nil
}

// Absences

func (repo *schoolRepository) CreateAbsence(ctx context.Context, abs school.Absence) (school.Absence, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.absenceSeq++
	abs.ID = repo.db.absenceSeq
	repo.db.absences[abs.ID] = abs
	return abs, nil
}

func (repo *schoolRepository) QueryAllAbsences(ctx context.Context) ([]school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAbsences(func(school.Absence) bool { return true }), nil
}

func (repo *schoolRepository) QueryAbsencesByStudent(ctx context.Context, studentID int) ([]school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAbsences(func(abs school.Absence) bool { return abs.StudentID == studentID }), nil
}

func (repo *schoolRepository) QueryAbsencesByClass(ctx context.Context, classID int) ([]school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAbsences(func(abs school.Absence) bool {
		st, ok := repo.db.students[abs.StudentID]
		return ok && st.ClassID == classID
	}), nil
}

func (repo *schoolRepository) QueryAbsencesByDate(ctx context.Context, date string) ([]school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAbsences(func(abs school.Absence) bool { return abs.Date == date }), nil
}

// QueryRecentAbsences returns the limit most recently recorded absences,
// newest first.
func (repo *schoolRepository) QueryRecentAbsences(ctx context.Context, limit int) ([]school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	absences := repo.queryAbsences(func(school.Absence) bool { return true })
	sort.SliceStable(absences, func(i, j int) bool {
		if !absences[i].CreatedAt.Equal(absences[j].CreatedAt) {
			return absences[i].CreatedAt.After(absences[j].CreatedAt)
		}
		return absences[i].ID > absences[j].ID
	})
	if limit > 0 && len(absences) > limit {
		absences = absences[:limit]
	}
	return absences, nil
}

// queryAbsences must be called with the lock held.
func (repo *schoolRepository) queryAbsences(match func(school.Absence) bool) []school.Absence {
	ids := make([]int, 0, len(repo.db.absences))
	for id, abs := range repo.db.absences {
		if match(abs) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	absences := make([]school.Absence, 0, len(ids))
	for _, id := range ids {
		absences = append(absences, repo.db.absences[id])
	}
	return absences
}

func (repo *schoolRepository) GetAbsenceByID(ctx context.Context, id int) (school.Absence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	abs, ok := repo.db.absences[id]
	if !ok {
		return school.Absence{}, school.ErrNotFound
	}
	return abs, nil
}

func (repo *schoolRepository) SetAbsenceNotified(ctx context.Context, id int, notified bool) (school.Absence, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	abs, ok := repo.db.absences[id]
	if !ok {
		return school.Absence{}, school.ErrNotFound
	}
	abs.Notified = notified
	repo.db.absences[id] = abs
	return abs, nil
}

// Counts

func (repo *schoolRepository) CountAbsencesByDate(ctx context.Context, date string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, abs := range repo.db.absences {
		if abs.Date == date {
			count++
		}
	}
	return count, nil
}

func (repo *schoolRepository) CountAbsencesBetween(ctx context.Context, from, to string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// ISO dates compare lexicographically
	var count int
	for _, abs := range repo.db.absences {
		if abs.Date >= from && abs.Date < to {
			count++
		}
	}
	return count, nil
}

func (repo *schoolRepository) CountAbsencesNotified(ctx context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, abs := range repo.db.absences {
		if abs.Notified {
			count++
		}
	}
	return count, nil
}
