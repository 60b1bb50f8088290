package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ramukaka/market/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID      string                   `bson:"_id"`
	Name    string                   `bson:"name"`
	Email   string                   `bson:"email"`
	Mobile  string                   `bson:"mobile"`
	Address string                   `bson:"address"`
	Pincode string                   `bson:"pincode"`
	Village string                   `bson:"village"`
	Roles   map[string]bson.RawValue `bson:"roles"`
}

type deliveryMeta struct {
	Pincodes []string `bson:"pincodes"`
}

// mongoUserRepository reads the users collection; it never writes.
type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{collection: db.Collection("users")}
}

func (m *mongoUserRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var doc userDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &domain.Profile{
		Name:    doc.Name,
		Email:   doc.Email,
		Mobile:  doc.Mobile,
		Address: doc.Address,
		Pincode: doc.Pincode,
		Village: doc.Village,
		Roles:   domain.ParseRoleMap(rolesToMap(doc.Roles)),
	}, nil
}

// rolesToMap flattens raw bson role values into the plain shapes ParseRoleMap understands.
func rolesToMap(raw map[string]bson.RawValue) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		switch value.Type {
		case bson.TypeBoolean:
			out[key] = value.Boolean()
		case bson.TypeEmbeddedDocument:
			var meta deliveryMeta
			if err := value.Unmarshal(&meta); err != nil {
				continue
			}
			out[key] = map[string]any{"pincodes": meta.Pincodes}
		case bson.TypeNull, bson.TypeUndefined:
		default:
			out[key] = true
		}
	}
	return out
}
