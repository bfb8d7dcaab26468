package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookstore-identity/models"
	"bookstore-identity/repositories"
	"bookstore-identity/services"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupContainer wires a full HTTP container over an in-memory SQLite database.
func setupContainer(t *testing.T) (*restful.Container, services.UserService) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Role{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	svc := services.NewUserService(userRepo, roleRepo, "123456")
	ctl := NewUserController(svc)

	container := restful.NewContainer()
	authWS := new(restful.WebService)
	ctl.RegisterAuthRoutes(authWS)
	container.Add(authWS)
	userWS := new(restful.WebService)
	ctl.RegisterUserRoutes(userWS)
	container.Add(userWS)
	return container, svc
}

func doJSON(t *testing.T, container *restful.Container, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	container.ServeHTTP(w, req)
	return w
}

func regBody(username, email string) string {
	return fmt.Sprintf(`{
		"username": %q,
		"password": "secret1",
		"email": %q,
		"first_name": "Alice",
		"last_name": "Liddell",
		"phone_number": "0912345678"
	}`, username, email)
}

func loginFor(t *testing.T, container *restful.Container, login, password string) string {
	w := doJSON(t, container, "POST", "/auth/login", "", fmt.Sprintf(`{"login":%q,"password":%q}`, login, password))
	require.Equal(t, http.StatusOK, w.Code, "login should succeed: %s", w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		container, _ := setupContainer(t)

		w := doJSON(t, container, "POST", "/auth/register", "", regBody("alice", "alice@x.com"))
		assert.Equal(t, http.StatusCreated, w.Code)

		var dto services.UserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, "alice", dto.Username)
		assert.Equal(t, []string{models.RoleUser}, dto.Roles)
		// The password hash must not appear in the response
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Duplicate username", func(t *testing.T) {
		container, _ := setupContainer(t)

		w := doJSON(t, container, "POST", "/auth/register", "", regBody("alice", "alice@x.com"))
		require.Equal(t, http.StatusCreated, w.Code)

		dup := regBody("alice", "other@x.com")
		w = doJSON(t, container, "POST", "/auth/register", "", dup)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Missing fields", func(t *testing.T) {
		container, _ := setupContainer(t)
		w := doJSON(t, container, "POST", "/auth/register", "", `{"username": "alice"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	container, _ := setupContainer(t)
	w := doJSON(t, container, "POST", "/auth/register", "", regBody("alice", "alice@x.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("Success returns token and roles", func(t *testing.T) {
		w := doJSON(t, container, "POST", "/auth/login", "", `{"login":"alice@x.com","password":"secret1"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, []string{models.RoleUser}, resp.Roles)
	})

	t.Run("Username login works too", func(t *testing.T) {
		w := doJSON(t, container, "POST", "/auth/login", "", `{"login":"alice","password":"secret1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrong := doJSON(t, container, "POST", "/auth/login", "", `{"login":"alice@x.com","password":"wrong"}`)
		unknown := doJSON(t, container, "POST", "/auth/login", "", `{"login":"ghost@x.com","password":"secret1"}`)

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	})
}

func TestProfileEndpoints(t *testing.T) {
	container, _ := setupContainer(t)
	w := doJSON(t, container, "POST", "/auth/register", "", regBody("alice", "alice@x.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	token := loginFor(t, container, "alice", "secret1")

	t.Run("Get own profile", func(t *testing.T) {
		w := doJSON(t, container, "GET", "/users/me", token, "")
		assert.Equal(t, http.StatusOK, w.Code)

		var dto services.UserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, "alice", dto.Username)
	})

	t.Run("Requires token", func(t *testing.T) {
		w := doJSON(t, container, "GET", "/users/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Update own profile", func(t *testing.T) {
		body := `{"email":"alice@x.com","first_name":"Alicia","last_name":"Liddell","phone_number":"+84987654321"}`
		w := doJSON(t, container, "PUT", "/users/me", token, body)
		assert.Equal(t, http.StatusOK, w.Code)

		var dto services.UserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, "Alicia", dto.FirstName)
	})

	t.Run("Email conflict on update", func(t *testing.T) {
		other := regBody("bobby", "bobby@x.com")
		w := doJSON(t, container, "POST", "/auth/register", "", other)
		require.Equal(t, http.StatusCreated, w.Code)

		body := `{"email":"bobby@x.com","first_name":"Alice","last_name":"Liddell","phone_number":"0912345678"}`
		w = doJSON(t, container, "PUT", "/users/me", token, body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	container, svc := setupContainer(t)

	// A regular user and an admin account
	w := doJSON(t, container, "POST", "/auth/register", "", regBody("alice", "alice@x.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	userToken := loginFor(t, container, "alice", "secret1")

	_, err := svc.CreateUser(&services.AdminCreateUserInput{
		Username:    "root",
		Email:       "root@x.com",
		FirstName:   "Root",
		LastName:    "Admin",
		PhoneNumber: "0900000000",
		Enabled:     true,
		Roles:       []string{models.RoleAdmin},
	})
	require.NoError(t, err)
	adminToken := loginFor(t, container, "root", "123456")

	t.Run("Non-admin is forbidden", func(t *testing.T) {
		w := doJSON(t, container, "GET", "/users", userToken, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Admin creates a disabled user with roles", func(t *testing.T) {
		body := `{
			"username": "bob",
			"email": "bob@x.com",
			"first_name": "Bob",
			"last_name": "Builder",
			"phone_number": "0911111111",
			"enabled": false,
			"roles": ["ADMIN"]
		}`
		w := doJSON(t, container, "POST", "/users", adminToken, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var dto services.UserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.False(t, dto.Enabled)
		assert.Equal(t, []string{models.RoleAdmin}, dto.Roles)

		t.Run("Get by id", func(t *testing.T) {
			w := doJSON(t, container, "GET", fmt.Sprintf("/users/%d", dto.ID), adminToken, "")
			assert.Equal(t, http.StatusOK, w.Code)
		})

		t.Run("Delete then get returns 404", func(t *testing.T) {
			w := doJSON(t, container, "DELETE", fmt.Sprintf("/users/%d", dto.ID), adminToken, "")
			assert.Equal(t, http.StatusOK, w.Code)

			w = doJSON(t, container, "GET", fmt.Sprintf("/users/%d", dto.ID), adminToken, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	})

	t.Run("Admin lists users", func(t *testing.T) {
		w := doJSON(t, container, "GET", "/users?page=1&page_size=10", adminToken, "")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp PaginatedUsersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.GreaterOrEqual(t, resp.Total, int64(2))
	})

	t.Run("Get unknown id returns 404", func(t *testing.T) {
		w := doJSON(t, container, "GET", "/users/99999", adminToken, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
