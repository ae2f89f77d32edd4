package reservationRepo

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

// MongoReservationRepo implements ReservationRepository using MongoDB.
type MongoReservationRepo struct {
	coll     *mongo.Collection
	products *mongo.Collection
	payments *mongo.Collection
}

// NewMongoReservationRepo creates a new instance of ReservationRepository using MongoDB.
func NewMongoReservationRepo() ReservationRepository {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	repo := &MongoReservationRepo{
		coll:     db.Collection("reservations"),
		products: db.Collection("businesses"),
		payments: db.Collection("pending_payments"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for conflict queries and payment lookups.
func (r *MongoReservationRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}

	payIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversationId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.payments.Indexes().CreateOne(ctx, payIdx); err != nil {
		return fmt.Errorf("failed to create payment index: %w", err)
	}
	return nil
}

// Create inserts a new reservation document.
func (r *MongoReservationRepo) Create(res *models.Reservation) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, res); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its unique ID.
func (r *MongoReservationRepo) GetByID(id string) (*models.Reservation, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var res models.Reservation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to fetch reservation %s: %w", id, err)
	}
	return &res, nil
}

// UpdateStatus transitions a reservation's status.
func (r *MongoReservationRepo) UpdateStatus(id string, status models.ReservationStatus) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reservation %s not found", id)
	}
	return nil
}

// ActiveForUser returns the user's non-cancelled reservations at a business.
func (r *MongoReservationRepo) ActiveForUser(businessID, userID string) ([]models.Reservation, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"businessId": businessID,
		"userId":     userID,
		"status":     bson.M{"$ne": models.ReservationCancelled},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return out, nil
}

// ActiveAt returns non-cancelled reservations at a given date and time.
func (r *MongoReservationRepo) ActiveAt(businessID, date, timeOfDay string) ([]models.Reservation, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"businessId": businessID,
		"date":       date,
		"time":       timeOfDay,
		"status":     bson.M{"$ne": models.ReservationCancelled},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations at %s %s: %w", date, timeOfDay, err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return out, nil
}

// DecrementStock subtracts qty from a product's stock only when enough
// remains; the filter makes check-and-decrement a single atomic update.
func (r *MongoReservationRepo) DecrementStock(businessID, productID string, qty int) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"_id": businessID,
		"config.products": bson.M{
			"$elemMatch": bson.M{"id": productID, "stock": bson.M{"$gte": qty}},
		},
	}
	update := bson.M{"$inc": bson.M{"config.products.$.stock": -qty}}

	result, err := r.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for %s: %w", productID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("insufficient stock for product %s", productID)
	}
	return nil
}

// IncrementStock adds qty back to a product's stock.
func (r *MongoReservationRepo) IncrementStock(businessID, productID string, qty int) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"_id": businessID, "config.products.id": productID}
	update := bson.M{"$inc": bson.M{"config.products.$.stock": qty}}

	result, err := r.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock for %s: %w", productID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("product %s not found", productID)
	}
	return nil
}

// SavePendingPayment upserts the pending payment for a conversation.
func (r *MongoReservationRepo) SavePendingPayment(p *models.PendingPayment) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	filter := bson.M{"conversationId": p.ConversationID}
	update := bson.M{"$set": p}
	opts := options.Update().SetUpsert(true)

	if _, err := r.payments.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save pending payment: %w", err)
	}
	return nil
}

// GetPendingPayment returns the pending payment for a conversation, or nil.
func (r *MongoReservationRepo) GetPendingPayment(conversationID string) (*models.PendingPayment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var p models.PendingPayment
	err := r.payments.FindOne(ctx, bson.M{"conversationId": conversationID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending payment: %w", err)
	}
	return &p, nil
}
