package businessRepo

import (
	"context"
	"fmt"
	"time"

	"reservo/config"
	"reservo/database"
	"reservo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBusinessRepo implements BusinessRepository using MongoDB.
type MongoBusinessRepo struct {
	coll *mongo.Collection
}

// NewMongoBusinessRepo creates a new instance of BusinessRepository using MongoDB.
func NewMongoBusinessRepo() BusinessRepository {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("businesses")
	return &MongoBusinessRepo{coll: coll}
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// GetByID retrieves a business by its unique ID and validates its config.
func (r *MongoBusinessRepo) GetByID(id string) (*models.Business, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var biz models.Business
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&biz); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("business %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch business %s: %w", id, err)
	}
	if err := validateConfig(&biz); err != nil {
		return nil, fmt.Errorf("business %s has invalid config: %w", id, err)
	}
	return &biz, nil
}

// validateConfig normalizes and rejects malformed business configuration at
// load time so nothing downstream touches untyped or half-filled entries.
func validateConfig(biz *models.Business) error {
	if biz.Type == "" {
		biz.Type = models.BusinessTypeGeneric
	}
	if len(biz.Config.Services) == 0 {
		return fmt.Errorf("no services configured")
	}
	seen := make(map[string]bool, len(biz.Config.Services))
	for _, svc := range biz.Config.Services {
		if svc.Key == "" {
			return fmt.Errorf("service with empty key")
		}
		if seen[svc.Key] {
			return fmt.Errorf("duplicate service key %q", svc.Key)
		}
		seen[svc.Key] = true
	}
	for _, p := range biz.Config.Products {
		if p.ID == "" {
			return fmt.Errorf("product with empty id")
		}
	}
	for _, w := range biz.Config.Hours {
		if len(w.Open) != 5 || len(w.Close) != 5 {
			return fmt.Errorf("operating window %s-%s not in HH:MM form", w.Open, w.Close)
		}
	}
	return nil
}
