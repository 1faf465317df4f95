package bell

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/giftcard-console/internal/model"
)

func TestCount(t *testing.T) {
	assert.Equal(t, "", Count(0))
	assert.Equal(t, "", Count(-2))
	assert.Equal(t, "7", Count(7))
	assert.Equal(t, "99", Count(99))
	assert.Equal(t, "99+", Count(100))
	assert.Equal(t, "99+", Count(4321))
}

func TestRender(t *testing.T) {
	out := Render(150, true, model.ConnectionConnected)
	assert.Contains(t, out, "99+")
	assert.Contains(t, out, "live")

	assert.NotContains(t, Render(5, false, model.ConnectionConnecting), "5")
}
