package memory

import (
	"testing"

	"github.com/nimbusnfs/nimbusnfs/pkg/metadata"
	metadatatesting "github.com/nimbusnfs/nimbusnfs/pkg/metadata/testing"
)

// TestMemoryMetadataStore runs the complete MetadataStore test suite
// against the MemoryMetadataStore implementation.
func TestMemoryMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func() metadata.MetadataStore {
			return NewMemoryMetadataStoreWithDefaults()
		},
	}

	suite.Run(t)
}
