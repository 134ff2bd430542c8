package savestore

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marketsim/core/internal/apperr"
)

// MongoStore is a MongoDB-backed Store, one document per SaveCode in
// the "save_codes" collection with presets embedded as a subdocument
// map. Connection/Migrate/Close shape lifted directly from the
// teacher's internal/persist.Store.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and returns a MongoStore. If the
// URI has no path component, database "marketsim" is used — the same
// default-database-name fallback the teacher's NewStore performs.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbName := "marketsim"
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	log.Printf("connected to MongoDB (db=%s)", dbName)
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// Database returns the underlying database handle, for components
// that need to read save_codes directly — the archiver's export cycle.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// Migrate creates the indexes save_codes needs.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.db.Collection("save_codes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create save_codes index: %w", err)
	}
	log.Println("MongoDB indexes ensured")
	return nil
}

type presetDoc struct {
	Snapshot  Snapshot  `bson:"snapshot"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type codeDoc struct {
	Code         string               `bson:"code"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
	ActivePreset string               `bson:"active_preset"`
	Presets      map[string]presetDoc `bson:"presets"`
}

// CreateCode mints a fresh code and inserts an empty record, retrying
// on collision up to 100 times, per spec §4.7/§8.
func (s *MongoStore) CreateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCollisionRetries; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		now := time.Now()
		_, err = s.db.Collection("save_codes").InsertOne(ctx, codeDoc{
			Code:      code,
			CreatedAt: now,
			UpdatedAt: now,
			Presets:   map[string]presetDoc{},
		})
		if err == nil {
			return code, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		return "", fmt.Errorf("insert save code: %w", err)
	}
	return "", apperr.New(apperr.Transient, "save code generation exhausted %d collision retries", maxCollisionRetries)
}

// Put upserts a preset slot and sets it active.
func (s *MongoStore) Put(ctx context.Context, code, presetName string, snap Snapshot) error {
	now := time.Now()
	res, err := s.db.Collection("save_codes").UpdateOne(ctx,
		bson.M{"code": code},
		bson.M{"$set": bson.M{
			"active_preset": presetName,
			"updated_at":    now,
			"presets." + presetName + ".snapshot":   snap,
			"presets." + presetName + ".updated_at":  now,
		},
			"$setOnInsert": bson.M{"presets." + presetName + ".created_at": now},
		},
	)
	if err != nil {
		return fmt.Errorf("upsert preset %s/%s: %w", code, presetName, err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	return nil
}

// Get returns the full record including preset metadata, never
// snapshot bodies.
func (s *MongoStore) Get(ctx context.Context, code string) (SaveRecord, error) {
	var doc codeDoc
	err := s.db.Collection("save_codes").FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return SaveRecord{}, apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	if err != nil {
		return SaveRecord{}, fmt.Errorf("load save code %s: %w", code, err)
	}

	presets := make([]PresetMeta, 0, len(doc.Presets))
	for name, p := range doc.Presets {
		presets = append(presets, PresetMeta{Name: name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt})
	}
	return SaveRecord{
		Code:         doc.Code,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		ActivePreset: doc.ActivePreset,
		Presets:      presets,
	}, nil
}

// GetPreset returns a single preset's snapshot body.
func (s *MongoStore) GetPreset(ctx context.Context, code, presetName string) (Snapshot, error) {
	var doc codeDoc
	err := s.db.Collection("save_codes").FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Snapshot{}, apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load save code %s: %w", code, err)
	}
	p, ok := doc.Presets[presetName]
	if !ok {
		return Snapshot{}, apperr.New(apperr.NotFound, "preset %q not found for code %q", presetName, code)
	}
	return p.Snapshot, nil
}

// DeletePreset removes a preset slot, reassigning activePreset to the
// lexicographically smallest remaining preset (or empty), per spec §4.7.
func (s *MongoStore) DeletePreset(ctx context.Context, code, presetName string) error {
	coll := s.db.Collection("save_codes")

	var doc codeDoc
	err := coll.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	if err != nil {
		return fmt.Errorf("load save code %s: %w", code, err)
	}
	if _, ok := doc.Presets[presetName]; !ok {
		return apperr.New(apperr.NotFound, "preset %q not found for code %q", presetName, code)
	}

	newActive := ""
	if doc.ActivePreset == presetName {
		names := make([]string, 0, len(doc.Presets))
		for name := range doc.Presets {
			if name != presetName {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			newActive = names[0]
			for _, n := range names {
				if n < newActive {
					newActive = n
				}
			}
		}
	} else {
		newActive = doc.ActivePreset
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"code": code},
		bson.M{
			"$unset": bson.M{"presets." + presetName: ""},
			"$set":   bson.M{"active_preset": newActive, "updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("delete preset %s/%s: %w", code, presetName, err)
	}
	return nil
}
