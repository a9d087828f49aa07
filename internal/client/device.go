package client

import (
	"encoding/json"
	"fmt"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

const deviceInfoKey = "device_info"

// LoadDeviceInfo returns this client's persisted device identity,
// generating and saving a fresh one on first run. The id must stay
// stable across restarts or remote-timer notifications would treat our
// own records as another device's.
func LoadDeviceInfo(local repositories.LocalStore, name, platform, userAgent string) (models.DeviceInfo, error) {
	if data, ok := local.Get(deviceInfoKey); ok {
		var device models.DeviceInfo
		if err := json.Unmarshal(data, &device); err == nil && device.DeviceID != "" {
			return device, nil
		}
		// Unreadable identity; fall through and mint a new one.
	}

	device := models.NewDeviceInfo(name, platform, userAgent)
	data, err := json.Marshal(device)
	if err != nil {
		return models.DeviceInfo{}, fmt.Errorf("failed to marshal device info: %w", err)
	}
	if err := local.Set(deviceInfoKey, data); err != nil {
		return models.DeviceInfo{}, fmt.Errorf("failed to save device info: %w", err)
	}
	return device, nil
}
