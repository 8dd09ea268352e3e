package mongostore

import (
	"context"
	"time"

	"medishop/models"
	"medishop/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var terminalPayment = bson.A{string(models.PaymentPaid), string(models.PaymentFailed)}

// OrderRepository stores orders.
type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(coll *mongo.Collection) *OrderRepository {
	return &OrderRepository{coll: coll}
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	res, err := r.coll.InsertOne(ctx, o)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := r.coll.FindOne(ctx, filter).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"order_code": code})
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.UserID.IsZero() {
		filter["user_id"] = f.UserID
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ChangeStatus(ctx context.Context, id primitive.ObjectID, change repository.StatusChange) (bool, error) {
	update := bson.M{"$set": bson.M{"status": change.To, "updated_at": change.At}}
	if change.Activity != nil {
		update["$push"] = bson.M{"activity_log": change.Activity}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": change.From}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *OrderRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, upd repository.DetailsUpdate) error {
	set := bson.M{"updated_at": upd.At}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if upd.Shipping != nil {
		set["shipping"] = *upd.Shipping
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  set,
		"$push": bson.M{"activity_log": upd.Activity},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) SetTotalLocal(ctx context.Context, id primitive.ObjectID, amount int64) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "total_local": bson.M{"$in": bson.A{nil, 0}}},
		bson.M{"$set": bson.M{"total_local": amount}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *OrderRepository) MarkPaymentInitiated(ctx context.Context, id primitive.ObjectID, method models.PaymentMethod, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "payment.status": bson.M{"$nin": terminalPayment}},
		bson.M{"$set": bson.M{
			"payment.method":       method,
			"payment.status":       models.PaymentPending,
			"payment.initiated_at": at,
			"updated_at":           at,
		}},
	)
	return err
}

// Settle is one pipeline update so the terminal-state guard, the payment
// write and the conditional order status move happen in a single atomic step.
func (r *OrderRepository) Settle(ctx context.Context, id primitive.ObjectID, s models.Settlement) (bool, error) {
	set := bson.D{
		{Key: "payment.status", Value: literal(string(s.Status))},
		{Key: "payment.notified_at", Value: s.At},
		{Key: "status", Value: bson.M{"$cond": bson.M{
			"if":   bson.M{"$eq": bson.A{"$status", string(models.OrderPending)}},
			"then": literal(string(s.OrderStatus)),
			"else": "$status",
		}}},
		{Key: "updated_at", Value: s.At},
	}
	optional := []struct {
		key string
		val string
	}{
		{"payment.transaction_no", s.TransactionNo},
		{"payment.response_code", s.ResponseCode},
		{"payment.bank_code", s.BankCode},
		{"payment.pay_date", s.PayDate},
		{"payment.fail_reason", s.FailReason},
	}
	for _, f := range optional {
		if f.val != "" {
			set = append(set, bson.E{Key: f.key, Value: literal(f.val)})
		}
	}
	if s.ExpectedAmount != 0 || s.ReceivedAmount != 0 {
		set = append(set,
			bson.E{Key: "payment.expected_amount", Value: s.ExpectedAmount},
			bson.E{Key: "payment.received_amount", Value: s.ReceivedAmount},
		)
	}
	if s.Status == models.PaymentPaid {
		set = append(set, bson.E{Key: "paid_at", Value: s.At})
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "payment.status": bson.M{"$nin": terminalPayment}},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// literal keeps provider-supplied strings from being read as field paths
// inside an aggregation pipeline.
func literal(v string) bson.M {
	return bson.M{"$literal": v}
}
