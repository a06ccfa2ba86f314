package azure

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/desktopvirtualization/armdesktopvirtualization/v2"
	"github.com/stretchr/testify/assert"

	"github.com/schuecal/avdroll/pkg/types"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		TenantID:       "tenant",
		SubscriptionID: "sub",
		ClientID:       "client",
		ClientSecret:   "secret",
		ResourceGroup:  "rg",
	}
	assert.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing tenant", func(c *Config) { c.TenantID = "" }},
		{"missing subscription", func(c *Config) { c.SubscriptionID = "" }},
		{"missing client id", func(c *Config) { c.ClientID = "" }},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }},
		{"missing resource group", func(c *Config) { c.ResourceGroup = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestConvertStatus(t *testing.T) {
	tests := []struct {
		name     string
		props    *armdesktopvirtualization.SessionHostProperties
		expected types.SessionHostStatus
	}{
		{"nil properties", nil, types.SessionHostUnknown},
		{"nil status", &armdesktopvirtualization.SessionHostProperties{}, types.SessionHostUnknown},
		{
			"available",
			&armdesktopvirtualization.SessionHostProperties{Status: to.Ptr(armdesktopvirtualization.StatusAvailable)},
			types.SessionHostAvailable,
		},
		{
			"upgrading",
			&armdesktopvirtualization.SessionHostProperties{Status: to.Ptr(armdesktopvirtualization.StatusUpgrading)},
			types.SessionHostUpgrading,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertStatus(tt.props))
		})
	}
}

func TestDeploymentErrorCarriesDiagnostic(t *testing.T) {
	err := &DeploymentError{
		Name:       "avd-rollout-1234",
		State:      "Failed",
		Diagnostic: `{"code":"InvalidTemplate","message":"parameter vmNamePrefix missing"}`,
	}
	assert.Contains(t, err.Error(), "InvalidTemplate")
	assert.Contains(t, err.Error(), "avd-rollout-1234")
}
