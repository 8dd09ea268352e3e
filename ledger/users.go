package ledger

import (
	"context"
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medishop/apperr"
	"medishop/models"
	"medishop/repository"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	GenerateJWT(u models.User) (string, error)
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  models.Address
}

// UserService registers and authenticates users and resolves request
// principals.
type UserService struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{users: users, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithOrders enables order statistics on admin user lookups.
func (s *UserService) WithOrders(orders repository.OrderRepository) *UserService {
	s.orders = orders
	return s
}

// WithHashCost lowers the bcrypt cost; used by tests.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("Name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("Invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal(err, "Error hashing password")
	}
	u := &models.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		Password:  string(hashed),
		Address:   in.Address,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal(err, "Error creating user")
	}
	return u, nil
}

// Login checks credentials and returns a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, apperr.Unauthorized("Invalid email or password")
		}
		return "", nil, apperr.Internal(err, "database error")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, apperr.Unauthorized("Invalid email or password")
	}
	if u.Banned {
		return "", nil, apperr.Forbidden("Account is banned")
	}
	token, err := s.tokens.GenerateJWT(*u)
	if err != nil {
		return "", nil, apperr.Internal(err, "Error generating token")
	}
	return token, u, nil
}

// Principal loads the user behind a verified token subject.
func (s *UserService) Principal(ctx context.Context, userID string) (models.Principal, error) {
	id, err := models.ParseID("user id", userID)
	if err != nil {
		return models.Principal{}, apperr.Unauthorized("Invalid token")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Principal{}, apperr.Unauthorized("User not found")
		}
		return models.Principal{}, apperr.Internal(err, "database error")
	}
	p := models.PrincipalFromUser(*u)
	if p.Banned {
		return p, apperr.Forbidden("Account is banned")
	}
	return p, nil
}

// Profile returns the caller's stored user record.
func (s *UserService) Profile(ctx context.Context, user models.Principal) (*models.User, error) {
	u, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return u, nil
}

// EnsureAdmin creates an admin account unless the email is already taken.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.create(ctx, RegisterInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if errors.Is(err, apperr.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UserPage is one page of an admin user listing.
type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}

// UserStats summarizes a customer's orders.
type UserStats struct {
	OrdersCount int     `json:"orders_count"`
	TotalSpent  float64 `json:"total_spent"`
}

// UserDetail is the admin view of one account.
type UserDetail struct {
	User  *models.User `json:"user"`
	Stats UserStats    `json:"stats"`
}

// UserEdit carries the profile fields an admin may change.
type UserEdit struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *models.Address
}

func parseBannedFilter(v string) *bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}

// AdminListUsers pages through accounts. Limit is clamped to 1..100 and
// defaults to 20; an unrecognized banned value is ignored.
func (s *UserService) AdminListUsers(ctx context.Context, query, role, banned string, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !models.ValidRole(role) {
		return nil, apperr.Validation("Invalid role: %s", role)
	}
	users, total, err := s.users.List(ctx, models.UserFilter{
		Query:  strings.TrimSpace(query),
		Role:   role,
		Banned: parseBannedFilter(banned),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list users")
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages == 0 {
		pages = 1
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit, Pages: pages}, nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := models.ParseID("user id", id)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return u, nil
}

// AdminGetUser returns an account with its order statistics.
func (s *UserService) AdminGetUser(ctx context.Context, id string) (*UserDetail, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &UserDetail{User: u}
	if s.orders == nil {
		return detail, nil
	}
	orders, err := s.orders.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load orders")
	}
	spent := decimal.Zero
	for _, o := range orders {
		spent = spent.Add(decimal.NewFromFloat(o.Total))
	}
	detail.Stats = UserStats{OrdersCount: len(orders), TotalSpent: spent.Round(2).InexactFloat64()}
	return detail, nil
}

func (s *UserService) update(ctx context.Context, id primitive.ObjectID, upd repository.UserUpdate) (*models.User, error) {
	if err := s.users.Update(ctx, id, upd, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Email already in use")
		}
		return nil, notFoundOr(err, "User not found")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return u, nil
}

// AdminUpdateUser edits profile fields of any account.
func (s *UserService) AdminUpdateUser(ctx context.Context, id string, edit UserEdit) (*models.User, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	upd := repository.UserUpdate{Phone: edit.Phone, Address: edit.Address}
	if edit.Name != nil {
		name := strings.TrimSpace(*edit.Name)
		if name == "" {
			return nil, apperr.Validation("Name is required")
		}
		upd.Name = &name
	}
	if edit.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*edit.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperr.Validation("Invalid email address")
		}
		upd.Email = &email
	}
	if upd == (repository.UserUpdate{}) {
		return nil, apperr.Validation("No valid fields to update")
	}
	return s.update(ctx, u.ID, upd)
}

// SetBanned bans or unbans an account. Admins cannot ban themselves.
func (s *UserService) SetBanned(ctx context.Context, actor models.Principal, id string, banned bool) (*models.User, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ID == actor.ID {
		return nil, apperr.Validation("You cannot update your own status")
	}
	if banned && u.Role == models.RoleAdmin && !u.Banned {
		if err := s.keepOneAdmin(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, u.ID, repository.UserUpdate{Banned: &banned})
}

// SetRole changes an account's role. The last active admin cannot be
// demoted, and admins cannot change their own role.
func (s *UserService) SetRole(ctx context.Context, actor models.Principal, id, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return nil, apperr.Validation("Invalid role")
	}
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ID == actor.ID {
		return nil, apperr.Validation("You cannot change your own role")
	}
	if u.Role == role {
		return u, nil
	}
	if u.Role == models.RoleAdmin && !u.Banned {
		if err := s.keepOneAdmin(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, u.ID, repository.UserUpdate{Role: &role})
}

func (s *UserService) keepOneAdmin(ctx context.Context, leaving primitive.ObjectID) error {
	n, err := s.users.CountActiveAdmins(ctx, leaving)
	if err != nil {
		return apperr.Internal(err, "database error")
	}
	if n == 0 {
		return apperr.Validation("Cannot remove the last active admin")
	}
	return nil
}

// ResetPassword replaces an account's password with a generated one and
// returns it in clear text.
func (s *UserService) ResetPassword(ctx context.Context, actor models.Principal, id string) (string, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return "", err
	}
	if u.ID == actor.ID {
		return "", apperr.Validation("You cannot reset your own password")
	}
	temp := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	hashed, err := bcrypt.GenerateFromPassword([]byte(temp), s.cost)
	if err != nil {
		return "", apperr.Internal(err, "Error hashing password")
	}
	pw := string(hashed)
	if _, err := s.update(ctx, u.ID, repository.UserUpdate{Password: &pw}); err != nil {
		return "", err
	}
	return temp, nil
}
