package gpioctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPullOptions(t *testing.T) {
	assert.Len(t, pullOptions(PullNone), 0)
	assert.Len(t, pullOptions(PullUp), 1)
	assert.Len(t, pullOptions(PullDown), 1)
}
