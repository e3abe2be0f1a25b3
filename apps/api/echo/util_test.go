package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/gestiabsences/backend/apps/api/echo"
	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/school"
	"github.com/gestiabsences/backend/core/user"
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

type testEnv struct {
	server  *echoapi.Server
	sms     *smssvc.SimulatedService
	repo    school.Repository
	cookies []*http.Cookie
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:      true,
		AppName:       "GestiAbsences",
		SecretKey:     "test-secret-key",
		SessionMaxAge: time.Hour,
		SMS:           core.SMSConfig{Timeout: time.Second},
	}

	db := inmem.Open()
	schoolRepo := inmem.NewSchoolRepository(db)
	userRepo := inmem.NewUserRepository(db)

	sms := smssvc.NewSimulatedService(nopLogger{})
	sms.SuccessRate = 1
	sms.MinLatency = 0
	sms.MaxLatency = 0

	usrSvc := user.NewService(userRepo)
	schoolSvc := school.NewService(schoolRepo, sms, nil, conf, nopLogger{})

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		UserSvc:    usrSvc,
		SchoolSvc:  schoolSvc,
		Validate:   validate,
		Translator: translator,
	})

	return &testEnv{server: server, sms: sms, repo: schoolRepo}
}

// setupAuthed registers a collaborator and keeps their session cookie for
// subsequent requests.
func setupAuthed(t *testing.T) *testEnv {
	t.Helper()
	env := setup(t)
	rec := env.request(t, http.MethodPost, "/register", map[string]interface{}{
		"username": "prof@ecole.fr",
		"fullname": "Marc Pinel",
		"password": "S3cret!Pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env.cookies = rec.Result().Cookies()
	require.NotEmpty(t, env.cookies)
	return env
}

func (env *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range env.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// seedDirectory creates a class, a subject and a student through the API.
func (env *testEnv) seedDirectory(t *testing.T) (school.Class, school.Subject, school.Student) {
	t.Helper()

	rec := env.request(t, http.MethodPost, "/classes", map[string]string{"name": "3ème A", "level": "3ème"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cls school.Class
	decode(t, rec, &cls)

	rec = env.request(t, http.MethodPost, "/subjects", map[string]string{"name": "Mathématiques"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub school.Subject
	decode(t, rec, &sub)

	rec = env.request(t, http.MethodPost, "/students", map[string]interface{}{
		"firstname":    "Lucas",
		"lastname":     "Martin",
		"class_id":     cls.ID,
		"parent_name":  "Martin Parents",
		"parent_email": "martin.parents@email.com",
		"parent_phone": "0612345678",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var st school.Student
	decode(t, rec, &st)

	return cls, sub, st
}

func newTranslator() ut.Translator {
	_fr := fr.New()
	uni := ut.New(_fr, _fr)
	translator, _ := uni.GetTranslator("fr")
	return translator
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}
