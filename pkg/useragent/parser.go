package useragent

import (
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// Device type vocabulary recorded in access history.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Parser classifies User-Agent strings into device type, OS family and
// browser family. Browser and OS names come from the uap-go regex
// database; device type uses ordered substring checks because the
// regex database's device families are too fine-grained for the
// three-bucket vocabulary stored in history records.
type Parser struct {
	parser *uaparser.Parser
}

// ClientInfo is the classification result. Empty fields mean the
// corresponding family could not be determined.
type ClientInfo struct {
	DeviceType string
	OS         string
	Browser    string
}

// NewParser creates a parser backed by the uap-go regex definitions
// compiled into the library.
func NewParser() *Parser {
	return &Parser{
		parser: uaparser.NewFromSaved(),
	}
}

// Parse classifies a User-Agent string. An empty input yields an empty
// ClientInfo rather than an error.
func (p *Parser) Parse(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{}
	}

	client := p.parser.Parse(userAgent)

	return ClientInfo{
		DeviceType: detectDeviceType(userAgent),
		OS:         familyOrEmpty(client.Os.Family),
		Browser:    familyOrEmpty(client.UserAgent.Family),
	}
}

// detectDeviceType buckets a User-Agent into Mobile/Tablet/Desktop.
// Order matters: tablet markers are checked before generic mobile ones
// because tablet UAs usually contain both.
func detectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") || strings.Contains(ua, "kindle") {
		return DeviceTablet
	}
	// Android tablets omit the "mobile" token, so "android" alone is
	// not enough to call it a phone.
	if strings.Contains(ua, "mobile") ||
		strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipod") {
		return DeviceMobile
	}
	return DeviceDesktop
}

// familyOrEmpty drops the uap-go "Other" placeholder.
func familyOrEmpty(family string) string {
	if family == "" || family == "Other" {
		return ""
	}
	return family
}
