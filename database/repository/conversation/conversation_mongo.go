package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"reservo/config"
	"reservo/database"
	"reservo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConversationRepo implements ConversationRepository using MongoDB.
type MongoConversationRepo struct {
	coll *mongo.Collection
}

// NewMongoConversationRepo creates a new instance of ConversationRepository using MongoDB.
func NewMongoConversationRepo() ConversationRepository {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("conversations")
	repo := &MongoConversationRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates the compound key index for (user, business) lookups.
func (r *MongoConversationRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "businessId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetContext loads the conversation state, creating a fresh idle state when
// none exists.
func (r *MongoConversationRepo) GetContext(userID, businessID string) (*models.ConversationState, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var state models.ConversationState
	err := r.coll.FindOne(ctx, bson.M{"userId": userID, "businessId": businessID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return models.NewConversationState(userID, businessID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation (%s,%s): %w", userID, businessID, err)
	}
	if state.Metadata == nil {
		state.Metadata = map[string]string{}
	}
	return &state, nil
}

// SaveContext upserts the full conversation document.
func (r *MongoConversationRepo) SaveContext(state *models.ConversationState) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	state.UpdatedAt = time.Now()
	filter := bson.M{"userId": state.UserID, "businessId": state.BusinessID}
	update := bson.M{"$set": state}
	opts := options.Update().SetUpsert(true)

	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save conversation (%s,%s): %w", state.UserID, state.BusinessID, err)
	}
	return nil
}

// AppendTurn pushes one turn onto the capped history.
func (r *MongoConversationRepo) AppendTurn(userID, businessID string, turn models.Turn, max int) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"userId": userID, "businessId": businessID}
	update := bson.M{
		"$push": bson.M{
			"history": bson.M{
				"$each":  []models.Turn{turn},
				"$slice": -max,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to append turn for (%s,%s): %w", userID, businessID, err)
	}
	return nil
}
