package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaIPhoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaIPadSafari    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	uaAndroidPhone  = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Mobile Safari/537.36"
	uaAndroidTablet = "Mozilla/5.0 (Linux; Android 12; SM-X906C) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"
	uaEdgeWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name       string
		userAgent  string
		deviceType string
		os         string
		browser    string
	}{
		{
			name:       "chrome_on_windows",
			userAgent:  uaChromeWindows,
			deviceType: DeviceDesktop,
			os:         "Windows",
			browser:    "Chrome",
		},
		{
			name:       "safari_on_iphone",
			userAgent:  uaIPhoneSafari,
			deviceType: DeviceMobile,
			os:         "iOS",
			browser:    "Mobile Safari",
		},
		{
			name:       "safari_on_ipad_is_tablet_not_mobile",
			userAgent:  uaIPadSafari,
			deviceType: DeviceTablet,
			os:         "iOS",
			browser:    "Mobile Safari",
		},
		{
			name:       "android_phone",
			userAgent:  uaAndroidPhone,
			deviceType: DeviceMobile,
			os:         "Android",
			browser:    "Chrome Mobile",
		},
		{
			name:       "edge_is_not_reported_as_chrome",
			userAgent:  uaEdgeWindows,
			deviceType: DeviceDesktop,
			os:         "Windows",
			browser:    "Edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := p.Parse(tt.userAgent)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			assert.Equal(t, tt.os, info.OS)
			assert.Equal(t, tt.browser, info.Browser)
		})
	}

	t.Run("empty_input_yields_empty_info", func(t *testing.T) {
		assert.Equal(t, ClientInfo{}, p.Parse(""))
	})

	t.Run("unrecognized_input_defaults_to_desktop", func(t *testing.T) {
		info := p.Parse("curl/8.4.0")
		assert.Equal(t, DeviceDesktop, info.DeviceType)
	})
}

func TestDetectDeviceType(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"android_without_mobile_token_is_not_phone", uaAndroidTablet, DeviceDesktop},
		{"kindle", "Mozilla/5.0 (Linux; U; Android 4.0.3; en-us; Kindle Fire) AppleWebKit/534.30", DeviceTablet},
		{"ipod", "Mozilla/5.0 (iPod touch; CPU iPhone OS 15_0 like Mac OS X)", DeviceMobile},
		{"plain_desktop", uaChromeWindows, DeviceDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDeviceType(tt.userAgent))
		})
	}
}
