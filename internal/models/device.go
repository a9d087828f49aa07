package models

import (
	"github.com/google/uuid"
)

// DeviceInfo attributes ActiveTimerRecords to the device that created
// them. It is informational only, never used as server-side identity.
type DeviceInfo struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	Platform   string `json:"platform"`
	UserAgent  string `json:"userAgent"`
}

// NewDeviceInfo generates a fresh device identity. Callers are expected
// to generate this once per client and cache it.
func NewDeviceInfo(name, platform, userAgent string) DeviceInfo {
	return DeviceInfo{
		DeviceID:   uuid.New().String(),
		DeviceName: name,
		Platform:   platform,
		UserAgent:  userAgent,
	}
}
