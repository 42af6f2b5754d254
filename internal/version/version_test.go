package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version, GitCommit = "v1.2.0", "unknown"
	assert.Equal(t, "v1.2.0", Full())

	GitCommit = "0123456789abcdef"
	assert.Equal(t, "v1.2.0 (0123456)", Full())

	GitCommit = "abc"
	assert.Equal(t, "v1.2.0", Full())
	assert.Equal(t, "kb/v1.2.0", UserAgent())
}
