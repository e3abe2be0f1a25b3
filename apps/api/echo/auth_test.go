package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestiabsences/backend/core/user"
)

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := setup(t)

	for _, path := range []string{"/absences", "/students", "/classes", "/subjects", "/stats/dashboard", "/user"} {
		rec := env.request(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Zero(t, rec.Body.Len(), "%s: 401 must have an empty body", path)
	}
}

func TestRegisterAndRetrieveUser(t *testing.T) {
	env := setupAuthed(t)

	rec := env.request(t, http.MethodGet, "/user", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "prof@ecole.fr", usr.Username)
	assert.Equal(t, "Marc Pinel", usr.FullName)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupAuthed(t)

	rec := env.request(t, http.MethodPost, "/register", map[string]interface{}{
		"username": "prof@ecole.fr",
		"fullname": "Autre Prof",
		"password": "Unautre!Pass9",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Cet email est déjà utilisé", body.Message)
}

func TestRegisterPasswordPolicy(t *testing.T) {
	env := setup(t)

	rec := env.request(t, http.MethodPost, "/register", map[string]interface{}{
		"username": "prof@ecole.fr",
		"fullname": "Marc Pinel",
		"password": "court",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Données invalides", body.Message)
	assert.Equal(t, "le mot de passe doit contenir au moins 8 caractères", body.Errors["password"])
}

func TestLogin(t *testing.T) {
	env := setupAuthed(t)
	env.cookies = nil // drop the registration session

	t.Run("wrong password", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/login", map[string]string{
			"username": "prof@ecole.fr",
			"password": "mauvais-mdp",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorResponse
		decode(t, rec, &body)
		assert.Equal(t, "Identifiants incorrects", body.Message)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/login", map[string]string{
			"username": "inconnu@ecole.fr",
			"password": "S3cret!Pass",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorResponse
		decode(t, rec, &body)
		assert.Equal(t, "Identifiants incorrects", body.Message)
	})

	t.Run("valid credentials", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/login", map[string]string{
			"username": "prof@ecole.fr",
			"password": "S3cret!Pass",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		env.cookies = rec.Result().Cookies()

		rec = env.request(t, http.MethodGet, "/user", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "prof@ecole.fr", usr.Username)
	})
}

func TestLogout(t *testing.T) {
	env := setupAuthed(t)

	rec := env.request(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body errorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Déconnexion réussie", body.Message)

	// a client honoring the expired cookie is logged out
	env.cookies = nil
	rec = env.request(t, http.MethodGet, "/user", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
