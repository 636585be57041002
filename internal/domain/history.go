package domain

import "time"

// AccessHistory is one recorded visit to a short URL. Records are
// written once by the enrichment pipeline and never mutated afterwards.
type AccessHistory struct {
	ID        int64  `gorm:"primaryKey;column:id" json:"id"`
	URLID     int64  `gorm:"column:url_id;not null;index" json:"url_id"`
	// Code is denormalized so a history row stays readable even if the
	// parent record disappears before the row is written.
	Code      string  `gorm:"column:code;size:16;not null;index" json:"code"`
	IPAddress string  `gorm:"column:ip_address;size:45" json:"ip_address"`
	UserAgent *string `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer   *string `gorm:"column:referer;size:500" json:"referer,omitempty"`

	// Geo fields, best-effort; empty when the lookup backend is
	// unavailable or the lookup failed.
	Country  *string `gorm:"column:country;size:100" json:"country,omitempty"`
	Region   *string `gorm:"column:region;size:100" json:"region,omitempty"`
	Province *string `gorm:"column:province;size:100" json:"province,omitempty"`
	City     *string `gorm:"column:city;size:100" json:"city,omitempty"`
	ISP      *string `gorm:"column:isp;size:100" json:"isp,omitempty"`

	// Client fields derived heuristically from the User-Agent header.
	DeviceType *string `gorm:"column:device_type;size:10" json:"device_type,omitempty"`
	OS         *string `gorm:"column:os;size:50" json:"os,omitempty"`
	Browser    *string `gorm:"column:browser;size:50" json:"browser,omitempty"`

	AccessedAt time.Time `gorm:"column:accessed_at;not null;index" json:"accessed_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	URL *URL `gorm:"foreignKey:URLID;constraint:OnDelete:CASCADE" json:"url,omitempty"`
}

// TableName returns the table name used by GORM.
func (AccessHistory) TableName() string {
	return "histories"
}
