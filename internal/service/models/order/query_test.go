package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMeta(t *testing.T) {
	t.Run("PartialLastPage", func(t *testing.T) {
		meta := NewMeta(2, 10, 25)
		assert.Equal(t, 2, meta.Page)
		assert.Equal(t, int64(25), meta.Total)
		assert.Equal(t, 3, meta.LastPage)
	})

	t.Run("ExactPages", func(t *testing.T) {
		meta := NewMeta(1, 10, 30)
		assert.Equal(t, 3, meta.LastPage)
	})

	t.Run("Empty", func(t *testing.T) {
		meta := NewMeta(1, 10, 0)
		assert.Equal(t, 0, meta.LastPage)
		assert.Equal(t, int64(0), meta.Total)
	})

	t.Run("SingleRow", func(t *testing.T) {
		meta := NewMeta(1, 10, 1)
		assert.Equal(t, 1, meta.LastPage)
	})
}

func TestQuery_Offset(t *testing.T) {
	assert.Equal(t, 0, Query{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, Query{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 40, Query{Page: 3, Limit: 20}.Offset())
}
