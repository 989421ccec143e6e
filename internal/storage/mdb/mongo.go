package mdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"filebot/internal/models"
	"filebot/internal/storage"
)

const configID = "bot_config"

type MongoDB struct {
	client   *mongo.Client
	users    *mongo.Collection
	files    *mongo.Collection
	codes    *mongo.Collection
	config   *mongo.Collection
	counters *mongo.Collection
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	return &MongoDB{
		client:   client,
		users:    db.Collection("users"),
		files:    db.Collection("files"),
		codes:    db.Collection("redeem_codes"),
		config:   db.Collection("admin_config"),
		counters: db.Collection("counters"),
	}, nil
}

// Initialize creates the singleton documents and indexes
func (db *MongoDB) Initialize(ctx context.Context) error {
	upsert := options.Update().SetUpsert(true)

	_, err := db.counters.UpdateOne(ctx,
		bson.M{"_id": storage.FileSequence},
		bson.M{"$setOnInsert": bson.M{"sequence_value": int64(0)}},
		upsert)
	if err != nil {
		return fmt.Errorf("failed to init counter: %w", err)
	}

	_, err = db.config.UpdateOne(ctx,
		bson.M{"_id": configID},
		bson.M{"$setOnInsert": bson.M{
			"admin_ids":           bson.A{},
			"force_sub_channels":  bson.A{},
			"auto_delete_seconds": 0,
		}},
		upsert)
	if err != nil {
		return fmt.Errorf("failed to init bot config: %w", err)
	}

	_, err = db.files.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "uploader_id", Value: 1}}})
	if err != nil {
		return fmt.Errorf("failed to create files index: %w", err)
	}
	return nil
}

// UpsertUser creates the user or refreshes username and first name
func (db *MongoDB) UpsertUser(ctx context.Context, user models.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.users.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{
			"$set":         bson.M{"username": user.Username, "first_name": user.FirstName},
			"$setOnInsert": bson.M{"created_at": createdAt},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *MongoDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var doc userDoc
	err := db.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u := doc.toModel()
	return &u, nil
}

func (db *MongoDB) SetCaption(ctx context.Context, id int64, caption string) error {
	_, err := db.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"caption": caption}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set caption: %w", err)
	}
	return nil
}

func (db *MongoDB) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	var (
		res *mongo.UpdateResult
		err error
	)
	if banned {
		res, err = db.users.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"banned": true}},
			options.Update().SetUpsert(true))
	} else {
		res, err = db.users.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$unset": bson.M{"banned": ""}})
	}
	if err != nil {
		return false, fmt.Errorf("failed to update ban flag: %w", err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (db *MongoDB) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	cur, err := db.users.Find(ctx,
		bson.M{"banned": bson.M{"$ne": true}},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var doc struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

func (db *MongoDB) CountUsers(ctx context.Context) (int64, error) {
	n, err := db.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// NextSequence atomically increments and returns the named counter
func (db *MongoDB) NextSequence(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"sequence_value"`
	}
	err := db.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"sequence_value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", name, err)
	}
	return doc.Value, nil
}

func (db *MongoDB) InsertFile(ctx context.Context, file *models.FileRecord) error {
	_, err := db.files.InsertOne(ctx, newFileDoc(file))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: file %d already exists", storage.ErrConflict, file.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (db *MongoDB) GetFile(ctx context.Context, id int64) (*models.FileRecord, error) {
	var doc fileDoc
	err := db.files.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	f := doc.toModel()
	return &f, nil
}

func (db *MongoDB) DeleteFile(ctx context.Context, id int64) error {
	res, err := db.files.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (db *MongoDB) CountFilesByUploader(ctx context.Context, uploaderID int64) (int64, error) {
	n, err := db.files.CountDocuments(ctx, bson.M{"uploader_id": uploaderID})
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (db *MongoDB) ListFilesByUploader(ctx context.Context, uploaderID int64, limit int) ([]models.FileRecord, error) {
	cur, err := db.files.Find(ctx,
		bson.M{"uploader_id": uploaderID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer cur.Close(ctx)

	var docs []fileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	files := make([]models.FileRecord, 0, len(docs))
	for _, d := range docs {
		files = append(files, d.toModel())
	}
	return files, nil
}

func (db *MongoDB) InsertCode(ctx context.Context, code *models.RedeemCode) error {
	doc, err := newCodeDoc(code)
	if err != nil {
		return err
	}
	_, err = db.codes.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: code %s already exists", storage.ErrConflict, code.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}
	return nil
}

func (db *MongoDB) GetCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	var doc codeDoc
	err := db.codes.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}
	return doc.toModel()
}

func (db *MongoDB) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := db.codes.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return n > 0, nil
}

func (db *MongoDB) ReserveRedemption(ctx context.Context, code string, userID int64) (*models.RedeemCode, error) {
	filter := bson.M{
		"_id":         code,
		"redeemed_by": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"redemption_limit": 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$redemption_count", "$redemption_limit"}}},
		},
	}
	update := bson.M{
		"$inc":      bson.M{"redemption_count": 1},
		"$addToSet": bson.M{"redeemed_by": userID},
	}

	var doc codeDoc
	err := db.codes.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve redemption: %w", err)
	}
	return doc.toModel()
}

func (db *MongoDB) ReleaseRedemption(ctx context.Context, code string, userID int64) error {
	_, err := db.codes.UpdateOne(ctx,
		bson.M{"_id": code, "redeemed_by": userID},
		bson.M{
			"$inc":  bson.M{"redemption_count": -1},
			"$pull": bson.M{"redeemed_by": userID},
		})
	if err != nil {
		return fmt.Errorf("failed to release redemption: %w", err)
	}
	return nil
}

// PopPoolItem removes the first pool item with $pop and returns it from the
// pre-image of the same update
func (db *MongoDB) PopPoolItem(ctx context.Context, code string) (string, error) {
	var doc codeDoc
	err := db.codes.FindOneAndUpdate(ctx,
		bson.M{"_id": code, "item_content.codes.0": bson.M{"$exists": true}},
		bson.M{"$pop": bson.M{"item_content.codes": -1}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", storage.ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to pop pool item: %w", err)
	}
	if len(doc.ItemContent.Codes) == 0 {
		return "", storage.ErrEmpty
	}
	return doc.ItemContent.Codes[0], nil
}

func (db *MongoDB) RestorePoolItem(ctx context.Context, code string, item string) error {
	_, err := db.codes.UpdateOne(ctx,
		bson.M{"_id": code},
		bson.M{"$push": bson.M{"item_content.codes": bson.M{
			"$each":     bson.A{item},
			"$position": 0,
		}}})
	if err != nil {
		return fmt.Errorf("failed to restore pool item: %w", err)
	}
	return nil
}

func (db *MongoDB) GetConfig(ctx context.Context) (*models.BotConfig, error) {
	var doc configDoc
	err := db.config.FindOne(ctx, bson.M{"_id": configID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.BotConfig{BotEnabled: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}
	return &models.BotConfig{
		AdminIDs:          doc.AdminIDs,
		AutoDeleteSeconds: doc.AutoDeleteSeconds,
		BotEnabled:        !doc.BotDisabled,
		ForceSubChannels:  doc.ForceSubChannels,
	}, nil
}

func (db *MongoDB) AddAdmin(ctx context.Context, id int64) (bool, error) {
	return db.updateConfig(ctx, bson.M{"$addToSet": bson.M{"admin_ids": id}})
}

func (db *MongoDB) RemoveAdmin(ctx context.Context, id int64) (bool, error) {
	return db.updateConfig(ctx, bson.M{"$pull": bson.M{"admin_ids": id}})
}

func (db *MongoDB) SetAutoDelete(ctx context.Context, seconds int) error {
	_, err := db.updateConfig(ctx, bson.M{"$set": bson.M{"auto_delete_seconds": seconds}})
	return err
}

func (db *MongoDB) SetBotEnabled(ctx context.Context, enabled bool) error {
	_, err := db.updateConfig(ctx, bson.M{"$set": bson.M{"bot_disabled": !enabled}})
	return err
}

func (db *MongoDB) AddForceSubChannel(ctx context.Context, channel string) (bool, error) {
	return db.updateConfig(ctx, bson.M{"$addToSet": bson.M{"force_sub_channels": channel}})
}

func (db *MongoDB) RemoveForceSubChannel(ctx context.Context, channel string) (bool, error) {
	return db.updateConfig(ctx, bson.M{"$pull": bson.M{"force_sub_channels": channel}})
}

func (db *MongoDB) updateConfig(ctx context.Context, update bson.M) (bool, error) {
	res, err := db.config.UpdateOne(ctx, bson.M{"_id": configID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to update bot config: %w", err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

// Close closes the database connection
func (db *MongoDB) Close() error {
	if db.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}
