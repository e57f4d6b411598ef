package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	info := VersionInfo()
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["commit"])
	assert.NotContains(t, info, "buildTime")
}
