package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	carbonmeter "github.com/greenops/carbonmeter"
)

func TestDefaultProfileResolver(t *testing.T) {
	resolver := DefaultProfileResolver()
	assert.Greater(t, resolver.Len(), 20)

	profile, err := resolver.Resolve("Standard_D2s_v3")
	assert.NoError(t, err)
	assert.Equal(t, "Standard_D2s_v3", profile.InstanceClass)
	assert.Equal(t, 205.0, profile.TDPWatts)
	assert.Equal(t, 52.0, profile.VCPUsTotal)
	assert.Equal(t, 2.0, profile.VCPUsAllocated)

	_, err = resolver.Resolve("Standard_Nonexistent")
	profileErr := new(carbonmeter.ProfileNotFoundError)
	assert.ErrorAs(t, err, &profileErr)
	assert.Equal(t, "Standard_Nonexistent", profileErr.InstanceClass)
}

func TestFuzzyProfileResolution(t *testing.T) {
	resolver := DefaultProfileResolver(WithFuzzyMatching())

	profile, err := resolver.Resolve("standard_d2s_v3")
	assert.NoError(t, err)
	assert.Equal(t, "Standard_D2s_v3", profile.InstanceClass)
}

func TestNewProfileResolverRejectsBrokenProfiles(t *testing.T) {
	_, err := NewProfileResolver([]carbonmeter.HardwareProfile{
		{InstanceClass: "", TDPWatts: 200, VCPUsTotal: 10},
	})
	assert.Error(t, err)

	_, err = NewProfileResolver([]carbonmeter.HardwareProfile{
		{InstanceClass: "small", TDPWatts: 0, VCPUsTotal: 10},
	})
	assert.Error(t, err)

	_, err = NewProfileResolver([]carbonmeter.HardwareProfile{
		{InstanceClass: "small", TDPWatts: 200, VCPUsTotal: 0},
	})
	assert.Error(t, err)
}
