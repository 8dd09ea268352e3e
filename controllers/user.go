package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"medishop/apperr"
	"medishop/ledger"
	"medishop/middleware"
	"medishop/models"
	"medishop/utils"
)

const requestTimeout = 5 * time.Second

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteError(w, r, apperr.Validation("Invalid input"))
		return false
	}
	return true
}

// principal returns the authenticated caller, writing a 401 when absent.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.Unauthorized("Unauthorized"))
	}
	return p, ok
}

// UserController handles user-related requests
type UserController struct {
	Users *ledger.UserService
}

func NewUserController(users *ledger.UserService) *UserController {
	return &UserController{Users: users}
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string         `json:"name"`
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Phone    string         `json:"phone"`
		Address  models.Address `json:"address"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.Users.Register(ctx, ledger.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
		Address:  body.Address,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &creds) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	token, user, err := uc.Users.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// GetProfile returns the caller's account
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.Users.Profile(ctx, p)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// AdminGetUsers lists accounts filtered by ?q=, ?role= and ?banned= (Admin only)
func (uc *UserController) AdminGetUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	result, err := uc.Users.AdminListUsers(ctx, q.Get("q"), q.Get("role"), q.Get("banned"), page, limit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// AdminGetUser returns one account with its order stats (Admin only)
func (uc *UserController) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	detail, err := uc.Users.AdminGetUser(ctx, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, detail)
}

// AdminUpdateUser edits an account's profile fields (Admin only)
func (uc *UserController) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    *string         `json:"name"`
		Email   *string         `json:"email"`
		Phone   *string         `json:"phone"`
		Address *models.Address `json:"address"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.Users.AdminUpdateUser(ctx, mux.Vars(r)["id"], ledger.UserEdit{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"message": "User updated", "user": user})
}

// BanUser bans or unbans an account (Admin only)
func (uc *UserController) BanUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body struct {
		Ban *bool `json:"ban"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Ban == nil {
		utils.WriteError(w, r, apperr.Validation("ban must be a boolean"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.Users.SetBanned(ctx, p, mux.Vars(r)["id"], *body.Ban)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"message": "User status updated", "user": user})
}

// SetUserRole changes an account's role (Admin only)
func (uc *UserController) SetUserRole(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.Users.SetRole(ctx, p, mux.Vars(r)["id"], body.Role)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"message": "Role updated", "user": user})
}

// ResetUserPassword issues a temporary password for an account (Admin only)
func (uc *UserController) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	temp, err := uc.Users.ResetPassword(ctx, p, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message":      "Temporary password generated",
		"tempPassword": temp,
	})
}
