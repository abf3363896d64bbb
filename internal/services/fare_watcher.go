package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/db"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
)

type TapProcessor interface {
	ProcessTap(ctx context.Context, ev models.TapEvent) (float64, error)
}

// FareWatcher charges fares for tap events inserted into rfid_events by readers.
// The stream position is saved after every event so taps inserted while the
// process is down are charged on the next start.
type FareWatcher struct {
	events    *mongo.Collection
	state     *mongo.Collection
	processor TapProcessor

	onReady func()
}

func NewFareWatcher(database *mongo.Database, processor TapProcessor) *FareWatcher {
	return &FareWatcher{
		events:    database.Collection(db.TapEventsCollection),
		state:     database.Collection(db.WatcherStateCollection),
		processor: processor,
	}
}

type tapChange struct {
	DocumentKey struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

type watcherState struct {
	ID          string   `bson:"_id"`
	ResumeToken bson.Raw `bson:"resume_token"`
}

// decodeTapEvent reads a reader document. fare_amount is accepted when
// fareAmount is absent.
func decodeTapEvent(raw bson.Raw) (models.TapEvent, error) {
	var ev models.TapEvent
	if err := bson.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	if ev.FareAmount == 0 {
		if v, err := raw.LookupErr("fare_amount"); err == nil {
			if f, ok := v.DoubleOK(); ok {
				ev.FareAmount = f
			} else if i, ok := v.Int32OK(); ok {
				ev.FareAmount = float64(i)
			} else if i, ok := v.Int64OK(); ok {
				ev.FareAmount = float64(i)
			}
		}
	}
	return ev, nil
}

// Run blocks until ctx is cancelled or the change stream fails.
// A failed tap is logged and skipped; it never stops the watcher.
func (w *FareWatcher) Run(ctx context.Context) error {
	stream, err := w.open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	logger.Info("watching tap events", "collection", db.TapEventsCollection)
	if w.onReady != nil {
		w.onReady()
	}

	for stream.Next(ctx) {
		var change tapChange
		if err := stream.Decode(&change); err != nil {
			logger.Error("decode tap event", "error", err)
			w.saveResumeToken(ctx, stream.ResumeToken())
			continue
		}
		ev, err := decodeTapEvent(change.FullDocument)
		if err != nil {
			logger.Error("decode tap event", "event_id", change.DocumentKey.ID, "error", err)
		} else {
			w.handle(ctx, change.DocumentKey.ID, ev)
		}
		w.saveResumeToken(ctx, stream.ResumeToken())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tap event stream: %w", err)
	}
	return nil
}

// open resumes after the saved token, or starts from now when there is none
// or the token is no longer in the oplog.
func (w *FareWatcher) open(ctx context.Context) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	var saved watcherState
	err := w.state.FindOne(ctx, bson.M{"_id": db.TapEventsCollection}).Decode(&saved)
	switch {
	case err == nil && len(saved.ResumeToken) > 0:
		stream, err := w.events.Watch(ctx, pipeline, opts.SetResumeAfter(saved.ResumeToken))
		if err == nil {
			return stream, nil
		}
		logger.Warn("cannot resume tap event stream, starting from now", "error", err)
		opts = options.ChangeStream().SetFullDocument(options.UpdateLookup)
	case err != nil && !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("load resume token: %w", err)
	}

	stream, err := w.events.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", db.TapEventsCollection, err)
	}
	return stream, nil
}

func (w *FareWatcher) saveResumeToken(ctx context.Context, token bson.Raw) {
	if len(token) == 0 {
		return
	}
	// a charge that committed must not be replayed because shutdown began
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := w.state.ReplaceOne(saveCtx,
		bson.M{"_id": db.TapEventsCollection},
		watcherState{ID: db.TapEventsCollection, ResumeToken: token},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		logger.Error("save resume token", "error", err)
	}
}

func (w *FareWatcher) handle(ctx context.Context, eventID interface{}, ev models.TapEvent) {
	if _, err := w.processor.ProcessTap(ctx, ev); err != nil {
		logger.Error("tap event not charged", "event_id", eventID, "uid", ev.UID, "error", err)
	}
}
