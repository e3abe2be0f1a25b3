// Package inmem provides in-memory repository implementations backed by
// plain maps. Used for local development, demos and tests.
package inmem

import (
	"sync"

	"github.com/gestiabsences/backend/core/school"
	"github.com/gestiabsences/backend/core/user"
)

// DB holds all tables behind a single lock. Ids are assigned from
// monotonically increasing counters so id order is insertion order.
type DB struct {
	mu sync.RWMutex

	users    map[int]user.User
	classes  map[int]school.Class
	subjects map[int]school.Subject
	students map[int]school.Student
	absences map[int]school.Absence

	userSeq    int
	classSeq   int
	subjectSeq int
	studentSeq int
	absenceSeq int
}

func Open() *DB {
	return &DB{
		users:    make(map[int]user.User),
		classes:  make(map[int]school.Class),
		subjects: make(map[int]school.Subject),
		students: make(map[int]school.Student),
		absences: make(map[int]school.Absence),
	}
}
