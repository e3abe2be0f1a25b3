package school_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/school"
	emailsvc "github.com/gestiabsences/backend/services/email"
	smssvc "github.com/gestiabsences/backend/services/sms"
	"github.com/gestiabsences/backend/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*school.Service, school.Repository, *smssvc.SimulatedService) {
	t.Helper()
	repo := inmem.NewSchoolRepository(inmem.Open())
	sms := smssvc.NewSimulatedService(nopLogger{})
	sms.SuccessRate = 1
	sms.MinLatency = 0
	sms.MaxLatency = 0
	conf := &core.Config{SMS: core.SMSConfig{Timeout: time.Second}}
	svc := school.NewService(repo, sms, nil, conf, nopLogger{})
	return svc, repo, sms
}

// seedDirectory creates a class, a subject and a student and returns them.
func seedDirectory(t *testing.T, repo school.Repository) (school.Class, school.Subject, school.Student) {
	t.Helper()
	ctx := context.Background()
	cls, err := repo.CreateClass(ctx, school.Class{Name: "3ème A", Level: "3ème"})
	require.NoError(t, err)
	sub, err := repo.CreateSubject(ctx, school.Subject{Name: "Mathématiques"})
	require.NoError(t, err)
	st, err := repo.CreateStudent(ctx, school.Student{
		Firstname:   "Lucas",
		Lastname:    "Martin",
		ClassID:     cls.ID,
		ParentName:  "Martin Parents",
		ParentEmail: "martin.parents@email.com",
		ParentPhone: "0612345678",
		Status:      school.StatusActive,
	})
	require.NoError(t, err)
	return cls, sub, st
}

func newAbsence(st school.Student, sub school.Subject) school.NewAbsence {
	return school.NewAbsence{
		StudentID: st.ID,
		Date:      "2024-05-10",
		StartTime: "10:30",
		EndTime:   "12:00",
		SubjectID: sub.ID,
	}
}

func TestCreateAbsenceNotifiesParent(t *testing.T) {
	svc, repo, sms := setup(t)
	_, sub, st := seedDirectory(t, repo)
	ctx := context.Background()

	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, true)
	require.NoError(t, err)

	assert.True(t, details.Notified)
	assert.Equal(t, st.ID, details.Student.ID)
	assert.Equal(t, "3ème A", details.Class.Name)
	assert.Equal(t, "Mathématiques", details.Subject.Name)
	assert.Equal(t, 1, details.CreatedBy)

	// the stored record carries the reconciled flag
	stored, err := repo.GetAbsenceByID(ctx, details.ID)
	require.NoError(t, err)
	assert.True(t, stored.Notified)

	messages := sms.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "+33612345678", messages[0].To)
	assert.Equal(t,
		school.FormatAbsenceMessage("Lucas Martin", "3ème A", "Mathématiques", "2024-05-10", "10:30", "12:00", ""),
		messages[0].Body,
	)
}

func TestCreateAbsenceDispatchFailure(t *testing.T) {
	svc, repo, sms := setup(t)
	_, sub, st := seedDirectory(t, repo)
	sms.SuccessRate = 0
	ctx := context.Background()

	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, true)
	require.NoError(t, err) // the record survives the failed dispatch

	assert.False(t, details.Notified)
	stored, err := repo.GetAbsenceByID(ctx, details.ID)
	require.NoError(t, err)
	assert.False(t, stored.Notified)
}

func TestCreateAbsenceWithoutNotification(t *testing.T) {
	svc, repo, sms := setup(t)
	_, sub, st := seedDirectory(t, repo)
	ctx := context.Background()

	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, false)
	require.NoError(t, err)

	assert.False(t, details.Notified)
	assert.Empty(t, sms.Messages())
}

// setupWithMail wires the synchronous console transport so the courtesy email
// copies can be asserted on.
func setupWithMail(t *testing.T) (*school.Service, school.Repository, *smssvc.SimulatedService) {
	t.Helper()
	repo := inmem.NewSchoolRepository(inmem.Open())
	sms := smssvc.NewSimulatedService(nopLogger{})
	sms.SuccessRate = 1
	sms.MinLatency = 0
	sms.MaxLatency = 0
	conf := &core.Config{
		AppName:          "GestiAbsences",
		DefaultFromEmail: mail.Address{Name: "GestiAbsences", Address: "noreply@gestiabsences.fr"},
		SMS:              core.SMSConfig{Timeout: time.Second},
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	svc := school.NewService(repo, sms, mailSvc, conf, nopLogger{})
	return svc, repo, sms
}

func TestCreateAbsenceSendsEmailCopy(t *testing.T) {
	svc, repo, sms := setupWithMail(t)
	_, sub, st := seedDirectory(t, repo)
	ctx := context.Background()

	before := len(emailsvc.SentMessages)
	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, true)
	require.NoError(t, err)
	assert.True(t, details.Notified)

	sent := emailsvc.SentMessages[before:]
	require.Len(t, sent, 1)
	require.Len(t, sent[0].To, 1)
	assert.Equal(t, "martin.parents@email.com", sent[0].To[0].Address)
	assert.Equal(t, "Martin Parents", sent[0].To[0].Name)
	assert.Equal(t, "Absence de Lucas Martin", sent[0].Subject)

	// the copy carries the same text as the SMS
	messages := sms.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, messages[0].Body, sent[0].Body)
}

func TestCreateAbsenceEmailCopyIsBestEffort(t *testing.T) {
	svc, repo, sms := setupWithMail(t)
	_, sub, st := seedDirectory(t, repo)
	sms.SuccessRate = 0
	ctx := context.Background()

	// the copy still goes out on a failed SMS and never drives notified
	before := len(emailsvc.SentMessages)
	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, true)
	require.NoError(t, err)
	assert.False(t, details.Notified)
	assert.Len(t, emailsvc.SentMessages[before:], 1)

	stored, err := repo.GetAbsenceByID(ctx, details.ID)
	require.NoError(t, err)
	assert.False(t, stored.Notified)
}

func TestCreateAbsenceNoParentEmailOnRecord(t *testing.T) {
	svc, repo, _ := setupWithMail(t)
	ctx := context.Background()
	cls, err := repo.CreateClass(ctx, school.Class{Name: "4ème B", Level: "4ème"})
	require.NoError(t, err)
	sub, err := repo.CreateSubject(ctx, school.Subject{Name: "Histoire"})
	require.NoError(t, err)
	st, err := repo.CreateStudent(ctx, school.Student{
		Firstname:   "Hugo",
		Lastname:    "Petit",
		ClassID:     cls.ID,
		ParentName:  "Petit Parents",
		ParentPhone: "0634567890",
		Status:      school.StatusActive,
	})
	require.NoError(t, err)

	before := len(emailsvc.SentMessages)
	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, true)
	require.NoError(t, err)
	assert.True(t, details.Notified)
	assert.Empty(t, emailsvc.SentMessages[before:])
}

func TestCreateAbsenceUnknownStudent(t *testing.T) {
	svc, repo, _ := setup(t)
	_, sub, _ := seedDirectory(t, repo)
	ctx := context.Background()

	na := school.NewAbsence{StudentID: 999, Date: "2024-05-10", StartTime: "10:30", EndTime: "12:00", SubjectID: sub.ID}
	_, err := svc.CreateAbsence(ctx, na, 1, true)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "L'élève spécifié n'existe pas", vErr.Error())

	// nothing persisted
	absences, err := repo.QueryAllAbsences(ctx)
	require.NoError(t, err)
	assert.Empty(t, absences)
}

func TestCreateAbsenceUnknownSubject(t *testing.T) {
	svc, repo, _ := setup(t)
	_, _, st := seedDirectory(t, repo)
	ctx := context.Background()

	na := school.NewAbsence{StudentID: st.ID, Date: "2024-05-10", StartTime: "10:30", EndTime: "12:00", SubjectID: 999}
	_, err := svc.CreateAbsence(ctx, na, 1, true)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "La matière spécifiée n'existe pas", vErr.Error())

	absences, err := repo.QueryAllAbsences(ctx)
	require.NoError(t, err)
	assert.Empty(t, absences)
}

func TestCreateAbsenceMissingClassUsesPlaceholder(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	sub, err := repo.CreateSubject(ctx, school.Subject{Name: "Sport"})
	require.NoError(t, err)
	// student pointing at a class that was never created
	st, err := repo.CreateStudent(ctx, school.Student{
		Firstname:   "Emma",
		Lastname:    "Bernard",
		ClassID:     42,
		ParentName:  "Bernard Parents",
		ParentEmail: "bernard.parents@email.com",
		ParentPhone: "0645678901",
		Status:      school.StatusActive,
	})
	require.NoError(t, err)

	details, err := svc.CreateAbsence(ctx, newAbsence(st, sub), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Inconnue", details.Class.Name)
}

func TestCreateClassDuplicateName(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateClass(ctx, school.NewClass{Name: "3ème A", Level: "3ème"})
	require.NoError(t, err)
	_, err = svc.CreateClass(ctx, school.NewClass{Name: "3ème A", Level: "3ème"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Une classe avec ce nom existe déjà", vErr.Error())
}

func TestCreateSubjectDuplicateName(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateSubject(ctx, school.NewSubject{Name: "Anglais"})
	require.NoError(t, err)
	_, err = svc.CreateSubject(ctx, school.NewSubject{Name: "Anglais"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCreateStudentUnknownClass(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateStudent(ctx, school.NewStudent{
		Firstname:   "Louis",
		Lastname:    "Petit",
		ClassID:     42,
		ParentName:  "Petit Parents",
		ParentEmail: "petit.parents@email.com",
		ParentPhone: "0656789012",
		Status:      school.StatusActive,
	})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "La classe spécifiée n'existe pas", vErr.Error())
}

func TestUpdateStudentUnknownID(t *testing.T) {
	svc, repo, _ := setup(t)
	cls, _, _ := seedDirectory(t, repo)
	ctx := context.Background()

	_, err := svc.UpdateStudent(ctx, 999, school.NewStudent{
		Firstname:   "X",
		Lastname:    "Y",
		ClassID:     cls.ID,
		ParentName:  "Z",
		ParentEmail: "z@email.com",
		ParentPhone: "0600000000",
		Status:      school.StatusActive,
	})
	assert.Equal(t, school.ErrNotFound, err)
}

func TestQueryAbsencesFilterPrecedence(t *testing.T) {
	svc, repo, _ := setup(t)
	cls, sub, st := seedDirectory(t, repo)
	ctx := context.Background()

	other, err := repo.CreateStudent(ctx, school.Student{
		Firstname: "Thomas", Lastname: "Leroy", ClassID: cls.ID,
		ParentName: "Leroy Parents", ParentEmail: "leroy.parents@email.com",
		ParentPhone: "0634567890", Status: school.StatusActive,
	})
	require.NoError(t, err)

	_, err = svc.CreateAbsence(ctx, newAbsence(st, sub), 1, false)
	require.NoError(t, err)
	_, err = svc.CreateAbsence(ctx, newAbsence(other, sub), 1, false)
	require.NoError(t, err)

	// the student filter wins over the class filter
	details, err := svc.QueryAbsences(ctx, school.AbsenceFilter{StudentID: st.ID, ClassID: cls.ID})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, st.ID, details[0].StudentID)

	// class filter alone matches both
	details, err = svc.QueryAbsences(ctx, school.AbsenceFilter{ClassID: cls.ID})
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestQueryStudentAbsencesUnknownStudent(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.QueryStudentAbsences(context.Background(), 999)
	assert.Equal(t, school.ErrNotFound, err)
}

func TestDashboardStats(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	// now is Wednesday 2024-05-15; its week runs Monday 13th through Sunday 19th
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)

	addAbsence := func(date string, notified bool) {
		abs, err := repo.CreateAbsence(ctx, school.Absence{
			StudentID: 1, Date: date, StartTime: "08:00", EndTime: "09:00",
			SubjectID: 1, CreatedAt: time.Now().UTC(), CreatedBy: 1,
		})
		require.NoError(t, err)
		if notified {
			_, err = repo.SetAbsenceNotified(ctx, abs.ID, true)
			require.NoError(t, err)
		}
	}

	addAbsence("2024-05-15", true)  // today
	addAbsence("2024-05-15", false) // today
	addAbsence("2024-05-13", true)  // Monday, in week
	addAbsence("2024-05-19", false) // Sunday, in week
	addAbsence("2024-05-12", false) // previous Sunday, out
	addAbsence("2024-05-20", false) // next Monday, out

	stats, err := svc.DashboardStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.AbsencesToday)
	assert.Equal(t, 4, stats.AbsencesWeek)
	assert.Equal(t, 2, stats.NotificationsSent)
}

func TestDashboardStatsOnMonday(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	// week start formula must not reach into the previous week on Mondays
	now := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	_, err := repo.CreateAbsence(ctx, school.Absence{
		StudentID: 1, Date: "2024-05-13", StartTime: "08:00", EndTime: "09:00",
		SubjectID: 1, CreatedAt: time.Now().UTC(), CreatedBy: 1,
	})
	require.NoError(t, err)
	_, err = repo.CreateAbsence(ctx, school.Absence{
		StudentID: 1, Date: "2024-05-12", StartTime: "08:00", EndTime: "09:00",
		SubjectID: 1, CreatedAt: time.Now().UTC(), CreatedBy: 1,
	})
	require.NoError(t, err)

	stats, err := svc.DashboardStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AbsencesToday)
	assert.Equal(t, 1, stats.AbsencesWeek)
}
