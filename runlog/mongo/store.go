// Package mongo wires runlog.Store to a MongoDB collection, giving the
// tool-call/run event log durability beyond the default bounded in-memory
// ring buffer. This does not change spec §1's Non-goals around persistent
// cross-restart run *queueing*: it is introspection durability only, a run
// in flight when the process restarts is not resumed.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/runlog"
)

const (
	defaultCollection = "orchestrator_run_events"
	defaultTimeout     = 5 * time.Second
)

type (
	// Options configures the Mongo-backed Store.
	Options struct {
		Client     *mongodriver.Client
		Database   string
		Collection string
		Timeout    time.Duration
	}

	// Store implements runlog.Store against a MongoDB collection.
	Store struct {
		coll    *mongodriver.Collection
		timeout time.Duration
	}

	eventDocument struct {
		ID        bson.ObjectID `bson:"_id,omitempty"`
		RunID     string        `bson:"run_id"`
		AgentID   string        `bson:"agent_id"`
		Type      string        `bson:"type"`
		FlowIndex string        `bson:"flow_index"`
		Timestamp time.Time     `bson:"timestamp"`
	}
)

// NewStore builds a Mongo-backed run log store and ensures its lookup
// index exists.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("runlog/mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("runlog/mongo: database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	coll := opts.Client.Database(opts.Database).Collection(collection)
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongodriver.IndexModel{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "_id", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(ictx, index); err != nil {
		return nil, fmt.Errorf("runlog/mongo: create index: %w", err)
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// Append implements runlog.Store.
func (s *Store) Append(ctx context.Context, e *runlog.Event) error {
	if e == nil {
		return errors.New("runlog/mongo: event is required")
	}
	if e.RunID == "" {
		return errors.New("runlog/mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := eventDocument{
		RunID:     e.RunID,
		AgentID:   e.AgentID,
		Type:      string(e.Type),
		FlowIndex: e.Event.FlowIndex(),
		Timestamp: e.Timestamp.UTC(),
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("runlog/mongo: insert: %w", err)
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("runlog/mongo: unexpected inserted id type %T", res.InsertedID)
	}
	e.ID = oid.Hex()
	return nil
}

// List implements runlog.Store.
func (s *Store) List(ctx context.Context, runID string, cursor string, limit int) (runlog.Page, error) {
	if runID == "" {
		return runlog.Page{}, errors.New("runlog/mongo: run id is required")
	}
	if limit <= 0 {
		return runlog.Page{}, errors.New("runlog/mongo: limit must be > 0")
	}

	filter := bson.M{"run_id": runID}
	if cursor != "" {
		oid, err := bson.ObjectIDFromHex(cursor)
		if err != nil {
			return runlog.Page{}, fmt.Errorf("runlog/mongo: invalid cursor %q: %w", cursor, err)
		}
		filter["_id"] = bson.M{"$gt": oid}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit+1)))
	if err != nil {
		return runlog.Page{}, fmt.Errorf("runlog/mongo: find: %w", err)
	}
	defer cur.Close(ctx)

	var events []*runlog.Event
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return runlog.Page{}, fmt.Errorf("runlog/mongo: decode: %w", err)
		}
		events = append(events, &runlog.Event{
			ID:        doc.ID.Hex(),
			RunID:     doc.RunID,
			AgentID:   doc.AgentID,
			Type:      hooks.EventType(doc.Type),
			Timestamp: doc.Timestamp,
		})
	}
	if err := cur.Err(); err != nil {
		return runlog.Page{}, err
	}

	var next string
	if len(events) > limit {
		next = events[limit-1].ID
		events = events[:limit]
	}
	return runlog.Page{Events: events, NextCursor: next}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
