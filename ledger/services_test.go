package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medishop/apperr"
	"medishop/models"
	"medishop/repository"
	"medishop/repository/memory"
)

func TestCartAddMergeRemove(t *testing.T) {
	store := memory.New()
	catalog := NewCatalogService(store.Products())
	carts := NewCartService(store.Products(), store.Carts())
	ctx := context.Background()
	user := models.Principal{ID: primitive.NewObjectID()}

	p, err := catalog.CreateProduct(ctx, ProductInput{Name: "Bandage", Price: 1.25, Stock: 4})
	require.NoError(t, err)

	cart, err := carts.AddToCart(ctx, user, p.ID.Hex(), 1)
	require.NoError(t, err)
	cart, err = carts.AddToCart(ctx, user, p.ID.Hex(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3.75, cart.Items[0].Subtotal)
	assert.Equal(t, 3.75, cart.Total)

	_, err = carts.AddToCart(ctx, user, p.ID.Hex(), 2)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = carts.AddToCart(ctx, user, p.ID.Hex(), 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	cart, err = carts.RemoveFromCart(ctx, user, p.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)

	_, err = carts.RemoveFromCart(ctx, user, p.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, carts.ClearCart(ctx, user))
}

func TestCatalog(t *testing.T) {
	store := memory.New()
	catalog := NewCatalogService(store.Products())
	ctx := context.Background()

	_, err := catalog.CreateProduct(ctx, ProductInput{Name: "X", Price: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	p, err := catalog.CreateProduct(ctx, ProductInput{Name: "Thermometer", Price: 12, Stock: 3, Category: "devices"})
	require.NoError(t, err)

	price := 11.5
	got, err := catalog.UpdateProduct(ctx, p.ID.Hex(), repository.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 11.5, got.Price)

	neg := -2
	_, err = catalog.UpdateProduct(ctx, p.ID.Hex(), repository.ProductUpdate{Stock: &neg})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, catalog.DeactivateProduct(ctx, p.ID.Hex()))
	_, err = catalog.GetProduct(ctx, p.ID.Hex(), false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	hidden, err := catalog.GetProduct(ctx, p.ID.Hex(), true)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)

	list, err := catalog.ListProducts(ctx, "devices", false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalogSeedOnlyEmpty(t *testing.T) {
	store := memory.New()
	catalog := NewCatalogService(store.Products())
	ctx := context.Background()
	items := []ProductInput{{Name: "A", Price: 1, Stock: 1}, {Name: "B", Price: 2, Stock: 2}}

	n, err := catalog.Seed(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = catalog.Seed(ctx, items)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type stubTokens struct{}

func (stubTokens) GenerateJWT(u models.User) (string, error) { return "token-" + u.Email, nil }

func TestUserRegisterLogin(t *testing.T) {
	store := memory.New()
	users := NewUserService(store.Users(), stubTokens{}).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	u, err := users.Register(ctx, RegisterInput{Name: "Minh", Email: " Minh@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "minh@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = users.Register(ctx, RegisterInput{Name: "Minh", Email: "minh@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = users.Register(ctx, RegisterInput{Name: "Short", Email: "s@example.com", Password: "123"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	token, _, err := users.Login(ctx, "MINH@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "token-minh@example.com", token)

	_, _, err = users.Login(ctx, "minh@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	p, err := users.Principal(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.False(t, p.IsAdmin())

	_, err = users.Principal(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUserBannedAndAdmin(t *testing.T) {
	store := memory.New()
	users := NewUserService(store.Users(), stubTokens{}).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	created, err := users.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = users.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := store.Users().FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	banned := &models.User{Name: "B", Email: "b@example.com", Role: models.RoleUser, Banned: true}
	require.NoError(t, store.Users().Insert(ctx, banned))
	_, err = users.Principal(ctx, banned.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAdminUserManagement(t *testing.T) {
	store := memory.New()
	users := NewUserService(store.Users(), stubTokens{}).WithHashCost(bcrypt.MinCost).WithOrders(store.Orders())
	ctx := context.Background()

	_, err := users.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	root, err := store.Users().FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	actor := models.PrincipalFromUser(*root)

	lan, err := users.Register(ctx, RegisterInput{Name: "Lan", Email: "lan@example.com", Password: "secret1", Phone: "0901"})
	require.NoError(t, err)
	_, err = users.Register(ctx, RegisterInput{Name: "Minh", Email: "minh@example.com", Password: "secret1"})
	require.NoError(t, err)

	page, err := users.AdminListUsers(ctx, "LAN", "", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 20, page.Limit)
	page, err = users.AdminListUsers(ctx, "", "user", "", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Users, 1)
	_, err = users.AdminListUsers(ctx, "", "owner", "", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, store.Orders().Insert(ctx, &models.Order{Code: "ORD1", UserID: lan.ID, Total: 10.1, Status: models.OrderPending}))
	require.NoError(t, store.Orders().Insert(ctx, &models.Order{Code: "ORD2", UserID: lan.ID, Total: 0.2, Status: models.OrderPending}))
	detail, err := users.AdminGetUser(ctx, lan.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Stats.OrdersCount)
	assert.Equal(t, 10.3, detail.Stats.TotalSpent)
	_, err = users.AdminGetUser(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	taken := "minh@example.com"
	_, err = users.AdminUpdateUser(ctx, lan.ID.Hex(), UserEdit{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = users.AdminUpdateUser(ctx, lan.ID.Hex(), UserEdit{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	name := " Lan Tran "
	updated, err := users.AdminUpdateUser(ctx, lan.ID.Hex(), UserEdit{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Lan Tran", updated.Name)
	assert.False(t, updated.UpdatedAt.IsZero())

	banned, err := users.SetBanned(ctx, actor, lan.ID.Hex(), true)
	require.NoError(t, err)
	assert.True(t, banned.Banned)
	_, _, err = users.Login(ctx, "lan@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = users.Principal(ctx, lan.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	page, err = users.AdminListUsers(ctx, "", "", "true", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	_, err = users.SetBanned(ctx, actor, lan.ID.Hex(), false)
	require.NoError(t, err)
	_, err = users.SetBanned(ctx, actor, root.ID.Hex(), true)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	temp, err := users.ResetPassword(ctx, actor, lan.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, temp, 12)
	_, _, err = users.Login(ctx, "lan@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, _, err = users.Login(ctx, "lan@example.com", temp)
	assert.NoError(t, err)
}

func TestSetRoleKeepsOneAdmin(t *testing.T) {
	store := memory.New()
	users := NewUserService(store.Users(), stubTokens{}).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	_, err := users.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	root, err := store.Users().FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	lan, err := users.Register(ctx, RegisterInput{Name: "Lan", Email: "lan@example.com", Password: "secret1"})
	require.NoError(t, err)

	// a principal outside the store acting on the only admin
	outsider := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = users.SetRole(ctx, outsider, root.ID.Hex(), "user")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = users.SetBanned(ctx, outsider, root.ID.Hex(), true)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	promoted, err := users.SetRole(ctx, outsider, lan.ID.Hex(), " Admin ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	principal, err := users.Principal(ctx, lan.ID.Hex())
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())

	demoted, err := users.SetRole(ctx, outsider, root.ID.Hex(), "user")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)

	_, err = users.SetRole(ctx, models.PrincipalFromUser(*lan), lan.ID.Hex(), "user")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = users.SetRole(ctx, outsider, lan.ID.Hex(), "owner")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
