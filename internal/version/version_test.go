package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		buildVersion  string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{name: "exact match", buildVersion: "1.2.0", configVersion: "1.2.0"},
		{name: "newer patch", buildVersion: "1.2.3", configVersion: "1.2.0"},
		{name: "newer minor", buildVersion: "1.4.0", configVersion: "1.2.0"},
		{name: "v prefix", buildVersion: "v1.2.0", configVersion: "v1.2.0"},
		{name: "development build", buildVersion: "main", configVersion: "3.0.0"},
		{name: "config from main", buildVersion: "1.0.0", configVersion: "main"},
		{
			name:          "older minor",
			buildVersion:  "1.1.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "cannot load",
		},
		{
			name:          "major differs",
			buildVersion:  "2.0.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "cannot load",
		},
		{
			name:          "invalid build version",
			buildVersion:  "not-a-version",
			configVersion: "1.0.0",
			expectError:   true,
			errorContains: "invalid build version",
		},
		{
			name:          "invalid config version",
			buildVersion:  "1.0.0",
			configVersion: "x.y",
			expectError:   true,
			errorContains: "invalid config version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatibility(tt.buildVersion, tt.configVersion)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
