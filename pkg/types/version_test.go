package types

import (
	"testing"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateVersion tests SemVer 2.0.0 acceptance and rejection
func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.0.0", true},
		{"0.1.0", true},
		{"10.20.30", true},
		{"1.0.0-alpha", true},
		{"1.0.0-alpha.1", true},
		{"1.0.0+build.123", true},
		{"1.0.0-rc.1+build.456", true},
		{"2.0.0-x.7.z.92", true},

		{"", false},
		{"1.0", false},
		{"v1.0.0", false},
		{"V1.0.0", false},
		{"1.0.0.0", false},
		{"01.0.0", false},
		{"1.02.0", false},
		{"1.0.0-", false},
		{"1.0.0-alpha..1", false},
		{"1.0.0-01", false},
		{"not-a-version", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errdefs.IsValidation(err), "rejection for %q must be a validation error", tt.version)
			}
		})
	}
}

// TestCompareVersions tests SemVer precedence ordering
func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.1.0", "2.0.9", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0+build.1", "1.0.0+build.2", 0}, // build metadata ignored
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestRunStatusTerminal(t *testing.T) {
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunFailed.Terminal())
	assert.True(t, RunCancelled.Terminal())
	assert.False(t, RunPending.Terminal())
	assert.False(t, RunAssigned.Terminal())
	assert.False(t, RunRunning.Terminal())
}

func TestValidConnectorType(t *testing.T) {
	for _, ct := range []ConnectorType{ConnectorServiceBus, ConnectorHTTP, ConnectorKafka, ConnectorStorage, ConnectorSQL} {
		assert.True(t, ValidConnectorType(ct))
	}
	assert.False(t, ValidConnectorType("rabbitmq"))
	assert.False(t, ValidConnectorType(""))
}
