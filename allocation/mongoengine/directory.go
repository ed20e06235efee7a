package mongoengine

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	operationFindUser       = "find_user"
	operationSaveUser       = "save_user"
	operationSetUserActive  = "set_user_active"
	operationFindResource   = "find_resource"
	operationSaveResource   = "save_resource"
	operationDeleteResource = "delete_resource"
)

// Directory is the MongoDB user directory and resource catalog. It shares the database of its Store.
type Directory struct {
	store *Store
}

// Directory returns the users and resources of the same database.
func (s *Store) Directory() *Directory {
	return &Directory{store: s}
}

func (d *Directory) FindUser(ctx context.Context, id string) (allocation.User, error) {
	var doc userDocument

	err := d.findOne(ctx, operationFindUser, d.store.users, id, &doc,
		fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id))
	if err != nil {
		return allocation.User{}, err
	}

	return allocation.User{ID: doc.ID, Login: doc.Login, Active: doc.Active}, nil
}

// SaveUser inserts the user or replaces an existing one.
func (d *Directory) SaveUser(ctx context.Context, u allocation.User) error {
	return d.replaceOne(ctx, operationSaveUser, d.store.users, u.ID,
		userDocument{ID: u.ID, Login: u.Login, Active: u.Active})
}

// SetUserActive flips the active flag of an existing user.
func (d *Directory) SetUserActive(ctx context.Context, id string, active bool) error {
	coll := d.store.users

	return d.store.run(ctx, operationSetUserActive, "updateOne "+coll.Name(), func(ctx context.Context) error {
		result, err := coll.UpdateOne(ctx,
			bson.D{{Key: fieldID, Value: id}},
			bson.D{{Key: "$set", Value: bson.D{{Key: fieldActive, Value: active}}}})
		if err != nil {
			return errors.Join(allocation.ErrQueryingDirectoryFailed, err)
		}

		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id)
		}

		return nil
	})
}

func (d *Directory) FindResource(ctx context.Context, id string) (allocation.Resource, error) {
	var doc resourceDocument

	err := d.findOne(ctx, operationFindResource, d.store.resources, id, &doc,
		fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id))
	if err != nil {
		return allocation.Resource{}, err
	}

	return allocation.Resource{ID: doc.ID, Kind: allocation.ResourceKind(doc.Kind), Name: doc.Name}, nil
}

// SaveResource inserts the resource or replaces an existing one.
func (d *Directory) SaveResource(ctx context.Context, r allocation.Resource) error {
	return d.replaceOne(ctx, operationSaveResource, d.store.resources, r.ID,
		resourceDocument{ID: r.ID, Kind: string(r.Kind), Name: r.Name})
}

func (d *Directory) DeleteResource(ctx context.Context, id string) error {
	coll := d.store.resources

	return d.store.run(ctx, operationDeleteResource, "deleteOne "+coll.Name(), func(ctx context.Context) error {
		result, err := coll.DeleteOne(ctx, bson.D{{Key: fieldID, Value: id}})
		if err != nil {
			return errors.Join(allocation.ErrQueryingDirectoryFailed, err)
		}

		if result.DeletedCount == 0 {
			return fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id)
		}

		return nil
	})
}

func (d *Directory) findOne(
	ctx context.Context,
	operation string,
	coll *mongo.Collection,
	id string,
	doc any,
	notFound error,
) error {
	return d.store.run(ctx, operation, "findOne "+coll.Name(), func(ctx context.Context) error {
		err := coll.FindOne(ctx, bson.D{{Key: fieldID, Value: id}}).Decode(doc)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return notFound
		default:
			return errors.Join(allocation.ErrQueryingDirectoryFailed, err)
		}
	})
}

func (d *Directory) replaceOne(ctx context.Context, operation string, coll *mongo.Collection, id string, doc any) error {
	return d.store.run(ctx, operation, "replaceOne "+coll.Name(), func(ctx context.Context) error {
		_, err := coll.ReplaceOne(ctx, bson.D{{Key: fieldID, Value: id}}, doc, mongoopts.Replace().SetUpsert(true))
		if err != nil {
			return errors.Join(allocation.ErrQueryingDirectoryFailed, err)
		}

		return nil
	})
}
