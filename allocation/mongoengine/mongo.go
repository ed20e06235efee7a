package mongoengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
)

const (
	engineName = "mongo"

	operationEnsureIndexes  = "ensure_indexes"
	operationInsert         = "insert"
	operationFindByID       = "find_by_id"
	operationFindAll        = "find_all"
	operationFindByUserID   = "find_by_user_id"
	operationFindByResource = "find_by_resource_id"
	operationExistsOpen     = "exists_open_for_resource"
	operationUpdateEndTime  = "update_end_time"
	operationDeleteByID     = "delete_by_id"

	indexOneOpenPerResource = "one_open_per_resource"
	indexUserID             = "user_id"
)

// Store is the MongoDB allocation.Store.
type Store struct {
	allocations          *mongo.Collection
	allocationsSecondary *mongo.Collection
	users                *mongo.Collection
	resources            *mongo.Collection
	in                   *observe.Instruments
}

// NewStore creates a Store on the given database. Call EnsureIndexes once before serving requests.
func NewStore(db *mongo.Database, options ...Option) (*Store, error) {
	if db == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	s := &settings{collections: collections{allocations: "allocations", users: "users", resources: "resources"}}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	allocations := db.Collection(s.collections.allocations)

	secondary, err := allocations.Clone(mongoopts.Collection().SetReadPreference(readpref.SecondaryPreferred()))
	if err != nil {
		return nil, err
	}

	return &Store{
		allocations:          allocations,
		allocationsSecondary: secondary,
		users:                db.Collection(s.collections.users),
		resources:            db.Collection(s.collections.resources),
		in:                   &s.instruments,
	}, nil
}

// EnsureIndexes creates the partial unique index on resourceId for open allocations and an index on userId.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: fieldResourceID, Value: 1}},
			Options: mongoopts.Index().
				SetName(indexOneOpenPerResource).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: fieldOpen, Value: true}}),
		},
		{
			Keys:    bson.D{{Key: fieldUserID, Value: 1}},
			Options: mongoopts.Index().SetName(indexUserID),
		},
	}

	return s.run(ctx, operationEnsureIndexes, "createIndexes "+s.allocations.Name(), func(ctx context.Context) error {
		if _, err := s.allocations.Indexes().CreateMany(ctx, models); err != nil {
			return errors.Join(allocation.ErrWritingAllocationFailed, err)
		}

		return nil
	})
}

func (s *Store) Insert(ctx context.Context, a allocation.Allocation) (allocation.Allocation, error) {
	doc := toAllocationDocument(primitive.NewObjectID(), a)

	err := s.run(ctx, operationInsert, "insertOne "+s.allocations.Name(), func(ctx context.Context) error {
		_, err := s.allocations.InsertOne(ctx, doc)

		switch {
		case err == nil:
			return nil
		case mongo.IsDuplicateKeyError(err):
			return fmt.Errorf("%w: resource with id %s", allocation.ErrResourceUnavailable, a.ResourceID)
		default:
			return errors.Join(allocation.ErrWritingAllocationFailed, err)
		}
	})
	if err != nil {
		return allocation.Allocation{}, err
	}

	return doc.toAllocation(), nil
}

// FindByID treats ids that are not ObjectID hex strings as unknown.
func (s *Store) FindByID(ctx context.Context, id string) (allocation.Allocation, error) {
	notFound := fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return allocation.Allocation{}, notFound
	}

	var doc allocationDocument

	err = s.run(ctx, operationFindByID, "findOne "+s.allocations.Name(), func(ctx context.Context) error {
		err := s.reads(ctx).FindOne(ctx, bson.D{{Key: fieldID, Value: oid}}).Decode(&doc)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return notFound
		default:
			return errors.Join(allocation.ErrQueryingAllocationsFailed, err)
		}
	})
	if err != nil {
		return allocation.Allocation{}, err
	}

	return doc.toAllocation(), nil
}

func (s *Store) FindAll(ctx context.Context) (allocation.Allocations, error) {
	return s.find(ctx, operationFindAll, bson.D{})
}

func (s *Store) FindByUserID(ctx context.Context, userID string) (allocation.Allocations, error) {
	return s.find(ctx, operationFindByUserID, bson.D{{Key: fieldUserID, Value: userID}})
}

func (s *Store) FindByResourceID(ctx context.Context, resourceID string) (allocation.Allocations, error) {
	return s.find(ctx, operationFindByResource, bson.D{{Key: fieldResourceID, Value: resourceID}})
}

func (s *Store) ExistsOpenForResource(ctx context.Context, resourceID string) (bool, error) {
	var count int64

	err := s.run(ctx, operationExistsOpen, "countDocuments "+s.allocations.Name(), func(ctx context.Context) error {
		var err error
		count, err = s.reads(ctx).CountDocuments(ctx,
			bson.D{{Key: fieldResourceID, Value: resourceID}, {Key: fieldOpen, Value: true}},
			mongoopts.Count().SetLimit(1))
		if err != nil {
			return errors.Join(allocation.ErrQueryingAllocationsFailed, err)
		}

		return nil
	})

	return count > 0, err
}

// UpdateEndTime only matches documents that are still open.
func (s *Store) UpdateEndTime(ctx context.Context, id string, endTime time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)
	}

	var matched int64

	err = s.run(ctx, operationUpdateEndTime, "updateOne "+s.allocations.Name(), func(ctx context.Context) error {
		result, err := s.allocations.UpdateOne(ctx,
			bson.D{{Key: fieldID, Value: oid}, {Key: fieldOpen, Value: true}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: fieldEndTime, Value: toMillis(endTime)},
				{Key: fieldOpen, Value: false},
			}}})
		if err != nil {
			return errors.Join(allocation.ErrWritingAllocationFailed, err)
		}

		matched = result.MatchedCount

		return nil
	})
	if err != nil || matched > 0 {
		return err
	}

	current, err := s.FindByID(allocation.WithStrongConsistency(ctx), id)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationAlreadyEnded, current.ID)
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	notFound := fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound
	}

	return s.run(ctx, operationDeleteByID, "deleteOne "+s.allocations.Name(), func(ctx context.Context) error {
		result, err := s.allocations.DeleteOne(ctx, bson.D{{Key: fieldID, Value: oid}})
		if err != nil {
			return errors.Join(allocation.ErrWritingAllocationFailed, err)
		}

		if result.DeletedCount == 0 {
			return notFound
		}

		return nil
	})
}

func (s *Store) find(ctx context.Context, operation string, filter bson.D) (allocation.Allocations, error) {
	result := make(allocation.Allocations, 0)

	err := s.run(ctx, operation, "find "+s.allocations.Name(), func(ctx context.Context) error {
		cursor, err := s.reads(ctx).Find(ctx, filter, mongoopts.Find().SetSort(bson.D{{Key: fieldID, Value: 1}}))
		if err != nil {
			return errors.Join(allocation.ErrQueryingAllocationsFailed, err)
		}

		var docs []allocationDocument
		if err = cursor.All(ctx, &docs); err != nil {
			return errors.Join(allocation.ErrScanningDBRowFailed, err)
		}

		for _, doc := range docs {
			result = append(result, doc.toAllocation())
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// reads picks the secondary-preferred collection for eventually consistent reads.
func (s *Store) reads(ctx context.Context) *mongo.Collection {
	if allocation.GetConsistencyLevel(ctx) == allocation.EventualConsistency {
		return s.allocationsSecondary
	}

	return s.allocations
}

func (s *Store) run(ctx context.Context, operation, command string, fn func(ctx context.Context) error) (err error) {
	ctx, call := s.in.BeginStoreCall(ctx, engineName, operation)
	defer func() { call.Finish(command, err) }()

	return fn(ctx)
}
