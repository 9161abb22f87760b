package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = old })

	assert.Equal(t, "1.2.3", Get().Version)
	assert.Contains(t, String(), "fluxpost 1.2.3 (commit none")
	assert.Contains(t, String(), runtime.Version())
}
