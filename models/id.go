package models

import (
	"strings"

	"medishop/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID parses a hex document identifier. The field name is used in the
// validation message.
func ParseID(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s", field)
	}
	return id, nil
}
