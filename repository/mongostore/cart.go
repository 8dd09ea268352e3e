package mongostore

import (
	"context"

	"medishop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartRepository stores one cart document per user.
type CartRepository struct {
	coll *mongo.Collection
}

func NewCartRepository(coll *mongo.Collection) *CartRepository {
	return &CartRepository{coll: coll}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *models.Cart) error {
	doc := bson.M{
		"user_id":    c.UserID,
		"items":      c.Items,
		"total":      c.Total,
		"updated_at": c.UpdatedAt,
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": c.UserID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *CartRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
