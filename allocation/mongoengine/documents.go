package mongoengine

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	fieldID         = "_id"
	fieldUserID     = "userId"
	fieldResourceID = "resourceId"
	fieldEndTime    = "endTime"
	fieldOpen       = "open"
	fieldActive     = "active"
)

// allocationDocument duplicates "end time is null" in Open because partial indexes cannot filter on null.
type allocationDocument struct {
	ID         primitive.ObjectID `bson:"_id"`
	UserID     string             `bson:"userId"`
	ResourceID string             `bson:"resourceId"`
	StartTime  time.Time          `bson:"startTime"`
	EndTime    *time.Time         `bson:"endTime"`
	Open       bool               `bson:"open"`
}

type userDocument struct {
	ID     string `bson:"_id"`
	Login  string `bson:"login"`
	Active bool   `bson:"active"`
}

type resourceDocument struct {
	ID   string `bson:"_id"`
	Kind string `bson:"kind"`
	Name string `bson:"name"`
}

func toAllocationDocument(id primitive.ObjectID, a allocation.Allocation) allocationDocument {
	doc := allocationDocument{
		ID:         id,
		UserID:     a.UserID,
		ResourceID: a.ResourceID,
		StartTime:  toMillis(a.StartTime),
		Open:       a.EndTime == nil,
	}

	if a.EndTime != nil {
		end := toMillis(*a.EndTime)
		doc.EndTime = &end
	}

	return doc
}

func (d allocationDocument) toAllocation() allocation.Allocation {
	a := allocation.Allocation{
		ID:         d.ID.Hex(),
		UserID:     d.UserID,
		ResourceID: d.ResourceID,
		StartTime:  d.StartTime.UTC(),
	}

	if d.EndTime != nil {
		end := d.EndTime.UTC()
		a.EndTime = &end
	}

	return a
}

// toMillis drops what a BSON date cannot hold, so the returned record equals the stored one.
func toMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
