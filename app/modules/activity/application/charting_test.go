package activityservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func TestRenderTypeBreakdownChart(t *testing.T) {
	t.Run("renders a bar per type", func(t *testing.T) {
		data, err := RenderTypeBreakdownChart(map[string]int{
			"counter_update":  12,
			"reset_performed": 3,
		})
		require.NoError(t, err)
		require.Greater(t, len(data), 4)
		assert.Equal(t, pngHeader, data[:4])
	})

	t.Run("renders a placeholder when there is no data", func(t *testing.T) {
		data, err := RenderTypeBreakdownChart(nil)
		require.NoError(t, err)
		require.Greater(t, len(data), 4)
		assert.Equal(t, pngHeader, data[:4])
	})
}
