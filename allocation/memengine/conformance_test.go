package memengine_test

import (
	"testing"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/storetest"
)

func Test_Store_Conformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Engine {
		return storetest.Engine{
			Store:       memengine.NewStore(),
			Directory:   memengine.NewDirectory(),
			MalformedID: "not-an-id",
		}
	})
}
