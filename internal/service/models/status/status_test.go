package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Recognized", func(t *testing.T) {
		for _, raw := range []string{"PENDING", "PAID", "DELIVERED", "CANCELLED"} {
			st, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, st.String())
		}
	})

	t.Run("Unrecognized", func(t *testing.T) {
		for _, raw := range []string{"", "pending", "SHIPPED", "UNKNOWN"} {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidStatus)
		}
	})
}
