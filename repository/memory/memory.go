// Package memory is an in-process implementation of the repository
// contracts. Each conditional update runs under one mutex, which gives the
// same per-document atomicity the Mongo implementation gets from the server.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"medishop/models"
	"medishop/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection.
type Store struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product
	orders   map[primitive.ObjectID]models.Order
	carts    map[primitive.ObjectID]models.Cart
	users    map[primitive.ObjectID]models.User

	// FailOrderInsert makes the next order insert fail with this error.
	FailOrderInsert error
}

func New() *Store {
	return &Store{
		products: map[primitive.ObjectID]models.Product{},
		orders:   map[primitive.ObjectID]models.Order{},
		carts:    map[primitive.ObjectID]models.Cart{},
		users:    map[primitive.ObjectID]models.User{},
	}
}

func (s *Store) Products() *Products { return &Products{s} }
func (s *Store) Orders() *Orders     { return &Orders{s} }
func (s *Store) Carts() *Carts       { return &Carts{s} }
func (s *Store) Users() *Users       { return &Users{s} }

// Products implements repository.ProductRepository.
type Products struct{ s *Store }

func (r *Products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Images = append([]string(nil), p.Images...)
	return &p, nil
}

func (r *Products) List(_ context.Context, category string, includeInactive bool) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Product{}
	for _, p := range r.s.products {
		if !includeInactive && !p.IsActive {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Products) Insert(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *Products) Update(_ context.Context, id primitive.ObjectID, upd repository.ProductUpdate, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Images != nil {
		p.Images = upd.Images
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = at
	r.s.products[id] = p
	return nil
}

func (r *Products) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.products)), nil
}

func (r *Products) ReserveStock(_ context.Context, id primitive.ObjectID, qty int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[id] = p
	return true, nil
}

func (r *Products) ReleaseStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[id]; ok {
		p.Stock += qty
		r.s.products[id] = p
	}
	return nil
}

// Orders implements repository.OrderRepository.
type Orders struct{ s *Store }

func cloneOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.ActivityLog = append([]models.Activity(nil), o.ActivityLog...)
	return &o
}

func (r *Orders) Insert(_ context.Context, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailOrderInsert; err != nil {
		r.s.FailOrderInsert = nil
		return err
	}
	for _, existing := range r.s.orders {
		if existing.Code == o.Code {
			return repository.ErrDuplicate
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	r.s.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (r *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) FindByCode(_ context.Context, code string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.Code == code {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Orders) sorted(keep func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Orders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r *Orders) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(o models.Order) bool {
		if f.Status != "" && !strings.EqualFold(string(o.Status), string(f.Status)) {
			return false
		}
		return f.UserID.IsZero() || o.UserID == f.UserID
	})
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *Orders) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}

func (r *Orders) ChangeStatus(_ context.Context, id primitive.ObjectID, change repository.StatusChange) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status != change.From {
		return false, nil
	}
	o.Status = change.To
	o.UpdatedAt = change.At
	if change.Activity != nil {
		o.ActivityLog = append(o.ActivityLog, *change.Activity)
	}
	r.s.orders[id] = o
	return true, nil
}

func (r *Orders) UpdateDetails(_ context.Context, id primitive.ObjectID, upd repository.DetailsUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Notes != nil {
		o.Notes = *upd.Notes
	}
	if upd.Shipping != nil {
		o.Shipping = *upd.Shipping
	}
	o.ActivityLog = append(o.ActivityLog, upd.Activity)
	o.UpdatedAt = upd.At
	r.s.orders[id] = o
	return nil
}

func (r *Orders) SetTotalLocal(_ context.Context, id primitive.ObjectID, amount int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.TotalLocal != 0 {
		return false, nil
	}
	o.TotalLocal = amount
	r.s.orders[id] = o
	return true, nil
}

func (r *Orders) MarkPaymentInitiated(_ context.Context, id primitive.ObjectID, method models.PaymentMethod, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Payment.Status.Terminal() {
		return nil
	}
	o.Payment.Method = method
	o.Payment.Status = models.PaymentPending
	o.Payment.InitiatedAt = &at
	o.UpdatedAt = at
	r.s.orders[id] = o
	return nil
}

func (r *Orders) Settle(_ context.Context, id primitive.ObjectID, st models.Settlement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Payment.Status.Terminal() {
		return false, nil
	}
	at := st.At
	o.Payment.Status = st.Status
	o.Payment.NotifiedAt = &at
	if st.TransactionNo != "" {
		o.Payment.TransactionNo = st.TransactionNo
	}
	if st.ResponseCode != "" {
		o.Payment.ResponseCode = st.ResponseCode
	}
	if st.BankCode != "" {
		o.Payment.BankCode = st.BankCode
	}
	if st.PayDate != "" {
		o.Payment.PayDate = st.PayDate
	}
	if st.FailReason != "" {
		o.Payment.FailReason = st.FailReason
	}
	if st.ExpectedAmount != 0 || st.ReceivedAmount != 0 {
		o.Payment.ExpectedAmount = st.ExpectedAmount
		o.Payment.ReceivedAmount = st.ReceivedAmount
	}
	if o.Status == models.OrderPending {
		o.Status = st.OrderStatus
	}
	if st.Status == models.PaymentPaid {
		o.PaidAt = &at
	}
	o.UpdatedAt = at
	r.s.orders[id] = o
	return true, nil
}

// Carts implements repository.CartRepository.
type Carts struct{ s *Store }

func (r *Carts) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (r *Carts) Save(_ context.Context, c *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.carts[c.UserID]; ok {
		c.ID = existing.ID
	} else if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	r.s.carts[c.UserID] = cp
	return nil
}

func (r *Carts) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, userID)
	return nil
}

// Users implements repository.UserRepository.
type Users struct{ s *Store }

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) Insert(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.s.users[u.ID] = *u
	return nil
}

type userMatcher models.UserFilter

func (f userMatcher) match(u models.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Banned != nil && u.Banned != *f.Banned {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		return strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.Phone), q)
	}
	return true
}

func (r *Users) List(_ context.Context, f models.UserFilter) ([]models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.User
	for _, u := range r.s.users {
		if userMatcher(f).match(u) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Hex() > all[j].ID.Hex()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return []models.User{}, total, nil
	}
	end := min(start+f.Limit, len(all))
	return append([]models.User{}, all[start:end]...), total, nil
}

func (r *Users) Update(_ context.Context, id primitive.ObjectID, upd repository.UserUpdate, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range r.s.users {
			if otherID != id && strings.EqualFold(other.Email, *upd.Email) {
				return repository.ErrDuplicate
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Banned != nil {
		u.Banned = *upd.Banned
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	u.UpdatedAt = at
	r.s.users[id] = u
	return nil
}

func (r *Users) CountActiveAdmins(_ context.Context, exclude primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.users {
		if id != exclude && u.Role == models.RoleAdmin && !u.Banned {
			n++
		}
	}
	return n, nil
}

var (
	_ repository.ProductRepository = (*Products)(nil)
	_ repository.OrderRepository   = (*Orders)(nil)
	_ repository.CartRepository    = (*Carts)(nil)
	_ repository.UserRepository    = (*Users)(nil)
)
