package domain

import "time"

// URLStatus controls whether a short code resolves for visitors.
type URLStatus int32

const (
	StatusEnabled  URLStatus = 0
	StatusDisabled URLStatus = 1
)

// ParseURLStatus normalizes an arbitrary integer to a known status.
// Unknown values collapse to StatusEnabled, matching the store's
// default, but only an exact StatusEnabled value redirects.
func ParseURLStatus(v int32) URLStatus {
	if v == int32(StatusDisabled) {
		return StatusDisabled
	}
	return StatusEnabled
}

// URL is a short code mapped to a destination URL.
type URL struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	Code        string    `gorm:"column:code;size:16;not null;uniqueIndex" json:"code"`
	OriginalURL string    `gorm:"column:original_url;type:text;not null" json:"original_url"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	Status      URLStatus `gorm:"column:status;not null;default:0;index" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name used by GORM.
func (URL) TableName() string {
	return "urls"
}

// IsEnabled reports whether the record may be served to visitors.
func (u *URL) IsEnabled() bool {
	return u.Status == StatusEnabled
}
