package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"bookstore-identity/auth"
	"bookstore-identity/models"
	"bookstore-identity/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

// Define the Service interface that the Controller depends on
type UserController struct {
	userService services.UserService
}

// Constructor, used to create a UserController instance
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// LoginCredentials defines the structure of the login request.
// Login is either an email or a username.
type LoginCredentials struct {
	Login    string `json:"login" description:"Email or username"`
	Password string `json:"password"`
}

// LoginResponse defines the structure of the login response
type LoginResponse struct {
	Token   string   `json:"token,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Message string   `json:"message,omitempty"`
}

type PaginatedUsersResponse struct {
	Users    []services.UserDTO `json:"users"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// --- go-restful Route Definitions ---

// RegisterAuthRoutes sets up the public authentication routes.
func (ctl *UserController) RegisterAuthRoutes(ws *restful.WebService) {
	ws.Path("/auth").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new user account").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User registered successfully", services.UserDTO{}).
		Returns(http.StatusBadRequest, "Invalid request body", nil).
		Returns(http.StatusConflict, "Username or Email already exists", nil))

	ws.Route(ws.POST("/login").To(ctl.loginHandler).
		Doc("Authenticate with email or username and receive a bearer token").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Reads(LoginCredentials{}).
		Writes(LoginResponse{}).
		Returns(http.StatusOK, "Login successful", LoginResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", nil).
		Returns(http.StatusUnauthorized, "Invalid credentials", nil))
}

// RegisterUserRoutes sets up the authenticated profile and admin routes.
func (ctl *UserController) RegisterUserRoutes(ws *restful.WebService) {
	ws.Path("/users").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	// --- Self-service profile routes ---
	ws.Route(ws.GET("/me").Filter(auth.AuthFilter()).To(ctl.getMyProfileHandler).
		Doc("Get the caller's own profile").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes(services.UserDTO{}).
		Returns(http.StatusOK, "Profile found", services.UserDTO{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil))

	ws.Route(ws.PUT("/me").Filter(auth.AuthFilter()).To(ctl.updateMyProfileHandler).
		Doc("Update the caller's own profile (email, names, phone only)").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.UpdateProfileInput{}).
		Writes(services.UserDTO{}).
		Returns(http.StatusOK, "Profile updated successfully", services.UserDTO{}).
		Returns(http.StatusBadRequest, "Invalid request body", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusConflict, "Email conflict", nil))

	// --- Administrative routes (ADMIN role required) ---
	ws.Route(ws.POST("").Filter(auth.AuthFilter()).Filter(auth.RequireRole(models.RoleAdmin)).To(ctl.createUserHandler).
		Doc("Admin: create a user account with a placeholder password").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.AdminCreateUserInput{}).
		Writes(services.UserDTO{}).
		Returns(http.StatusCreated, "User created successfully", services.UserDTO{}).
		Returns(http.StatusBadRequest, "Invalid request body", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusConflict, "Username or Email already exists", nil))

	ws.Route(ws.GET("").Filter(auth.AuthFilter()).Filter(auth.RequireRole(models.RoleAdmin)).To(ctl.listUsersHandler).
		Doc("Admin: list users with pagination").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("page_size", "Users per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes(PaginatedUsersResponse{}).
		Returns(http.StatusOK, "Users listed successfully", PaginatedUsersResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.GET("/{user-id}").Filter(auth.AuthFilter()).Filter(auth.RequireRole(models.RoleAdmin)).To(ctl.getUserByIDHandler).
		Doc("Admin: get user by ID").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes(services.UserDTO{}).
		Returns(http.StatusOK, "User found", services.UserDTO{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "User not found", nil))

	ws.Route(ws.DELETE("/{user-id}").Filter(auth.AuthFilter()).Filter(auth.RequireRole(models.RoleAdmin)).To(ctl.deleteUserHandler).
		Doc("Admin: delete user by ID").
		Param(ws.PathParameter("user-id", "Identifier of the user to delete").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Returns(http.StatusOK, "User deleted successfully", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "User not found", nil))
}

// --- go-restful Handler Functions ---

// registerHandler (Handles POST /auth/register)
func (ctl *UserController) registerHandler(request *restful.Request, response *restful.Response) {
	input := new(services.RegisterInput)
	if err := request.ReadEntity(input); err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	if input.Username == "" || input.Password == "" || input.Email == "" {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Username, password and email are required"}, restful.MIME_JSON)
		return
	}

	user, err := ctl.userService.Register(input)
	if err != nil {
		handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusCreated, services.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Enabled:     user.Enabled,
		Roles:       user.RoleNames(),
		CreatedAt:   user.CreatedAt,
	}, restful.MIME_JSON)
}

// loginHandler (Handles POST /auth/login)
func (ctl *UserController) loginHandler(request *restful.Request, response *restful.Response) {
	creds := new(LoginCredentials)
	if err := request.ReadEntity(creds); err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, LoginResponse{Message: "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	if creds.Login == "" || creds.Password == "" {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, LoginResponse{Message: "Login and password are required"}, restful.MIME_JSON)
		return
	}

	token, roles, err := ctl.userService.Authenticate(creds.Login, creds.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Avoid revealing whether the user exists
			_ = response.WriteHeaderAndJson(http.StatusUnauthorized, LoginResponse{Message: "Invalid credentials"}, restful.MIME_JSON)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusInternalServerError, LoginResponse{Message: "Could not complete login"}, restful.MIME_JSON)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, LoginResponse{Token: token, Roles: roles}, restful.MIME_JSON)
}

// getMyProfileHandler (Handles GET /users/me)
func (ctl *UserController) getMyProfileHandler(request *restful.Request, response *restful.Response) {
	login, ok := getRequestingUsername(request)
	if !ok {
		_ = response.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Unauthorized: Cannot identify requesting user"}, restful.MIME_JSON)
		return
	}

	dto, err := ctl.userService.GetMyProfile(login)
	if err != nil {
		handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, dto, restful.MIME_JSON)
}

// updateMyProfileHandler (Handles PUT /users/me)
func (ctl *UserController) updateMyProfileHandler(request *restful.Request, response *restful.Response) {
	login, ok := getRequestingUsername(request)
	if !ok {
		_ = response.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Unauthorized: Cannot identify requesting user"}, restful.MIME_JSON)
		return
	}

	input := new(services.UpdateProfileInput)
	if err := request.ReadEntity(input); err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	dto, err := ctl.userService.UpdateOwnProfile(login, input)
	if err != nil {
		handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, dto, restful.MIME_JSON)
}

// createUserHandler (Handles POST /users)
func (ctl *UserController) createUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.AdminCreateUserInput)
	if err := request.ReadEntity(input); err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	if input.Username == "" || input.Email == "" {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Username and email are required"}, restful.MIME_JSON)
		return
	}

	dto, err := ctl.userService.CreateUser(input)
	if err != nil {
		handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusCreated, dto, restful.MIME_JSON)
}

// listUsersHandler (Handles GET /users)
func (ctl *UserController) listUsersHandler(request *restful.Request, response *restful.Response) {
	page, err := strconv.Atoi(request.QueryParameter("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(request.QueryParameter("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	users, total, err := ctl.userService.ListUsers(page, pageSize)
	if err != nil {
		handleServiceError(response, err)
		return
	}

	respData := PaginatedUsersResponse{
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, respData, restful.MIME_JSON)
}

// getUserByIDHandler (Handles GET /users/{user-id})
func (ctl *UserController) getUserByIDHandler(request *restful.Request, response *restful.Response) {
	targetUserID, err := strconv.ParseUint(request.PathParameter("user-id"), 10, 32)
	if err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Invalid user ID format"}, restful.MIME_JSON)
		return
	}

	dto, err := ctl.userService.GetUserByID(uint(targetUserID))
	if err != nil {
		handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, dto, restful.MIME_JSON)
}

// deleteUserHandler (Handles DELETE /users/{user-id})
func (ctl *UserController) deleteUserHandler(request *restful.Request, response *restful.Response) {
	targetUserID, err := strconv.ParseUint(request.PathParameter("user-id"), 10, 32)
	if err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, map[string]string{"message": "Invalid user ID format"}, restful.MIME_JSON)
		return
	}

	if err := ctl.userService.DeleteUser(uint(targetUserID)); err != nil {
		handleServiceError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// --- Utility Functions ---

// getRequestingUsername extracts the username set by the AuthFilter.
func getRequestingUsername(request *restful.Request) (string, bool) {
	usernameAttr := request.Attribute("username")
	if usernameAttr == nil {
		return "", false
	}
	username, ok := usernameAttr.(string)
	return username, ok && username != ""
}

// handleServiceError translates domain errors to HTTP responses.
func handleServiceError(response *restful.Response, err error) {
	statusCode := http.StatusInternalServerError
	message := "An internal error occurred"

	switch {
	case errors.Is(err, services.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrDuplicateUsername),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrEmailInUse):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		message = err.Error()
	}

	_ = response.WriteHeaderAndJson(statusCode, map[string]string{"message": message}, restful.MIME_JSON)
}
