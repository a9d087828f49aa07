package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDeviceInfo_StableAcrossReloads(t *testing.T) {
	local := newTestLocalStore(t)

	first, err := LoadDeviceInfo(local, "laptop", "linux", "tickstream/1.0")
	require.NoError(t, err)
	require.NotEmpty(t, first.DeviceID)
	assert.Equal(t, "laptop", first.DeviceName)
	assert.Equal(t, "linux", first.Platform)

	second, err := LoadDeviceInfo(local, "laptop", "linux", "tickstream/1.0")
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID, second.DeviceID)
}

func TestLoadDeviceInfo_ReplacesCorruptIdentity(t *testing.T) {
	local := newTestLocalStore(t)
	require.NoError(t, local.Set("device_info", []byte("not json")))

	device, err := LoadDeviceInfo(local, "laptop", "linux", "tickstream/1.0")
	require.NoError(t, err)
	assert.NotEmpty(t, device.DeviceID)
}
