package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMilvusStoreCollectionNames(t *testing.T) {
	s := NewMilvusStore(nil, "", "")
	assert.Equal(t, DefaultChunkCollection, s.chunkCollection)
	assert.Equal(t, DefaultImageCollection, s.imageCollection)

	s = NewMilvusStore(nil, "custom_chunks", "custom_images")
	assert.Equal(t, "custom_chunks", s.chunkCollection)
	assert.Equal(t, "custom_images", s.imageCollection)
}
