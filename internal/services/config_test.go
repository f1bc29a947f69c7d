package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeploymentSettings(t *testing.T) {
	owner := "0:" + strings.Repeat("ab", 32)

	settings, err := ParseDeploymentSettings(`{"deploymentData":{"owner_address":"` + owner + `","owner_fee":5}}`)
	require.NoError(t, err)
	assert.Equal(t, owner, settings.OwnerAddress)
	assert.Equal(t, 5.0, settings.OwnerFee)
}

func TestParseDeploymentSettingsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `owner=1`},
		{"missing owner", `{"deploymentData":{"owner_fee":5}}`},
		{"bad owner", `{"deploymentData":{"owner_address":"nope","owner_fee":5}}`},
		{"fee out of range", `{"deploymentData":{"owner_address":"0:0000000000000000000000000000000000000000000000000000000000000000","owner_fee":101}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeploymentSettings(tt.raw)
			assert.Error(t, err)
		})
	}
}
