package domain

import "time"

// Client is a website/property managed by an agency user
type Client struct {
	CreatedAt         time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	GoogleTokenExpiry *time.Time `gorm:"column:google_token_expiry" json:"-"`

	ID                   string `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID               string `gorm:"column:user_id;size:36;index;not null" json:"userId"`
	Name                 string `gorm:"column:name;size:255" json:"name"`
	Domain               string `gorm:"column:domain;size:255" json:"domain"`
	ContactEmail         string `gorm:"column:contact_email;size:255" json:"contactEmail,omitempty"`
	GoogleAccessToken    string `gorm:"column:google_access_token;type:text" json:"-"`
	GoogleRefreshToken   string `gorm:"column:google_refresh_token;type:text" json:"-"`
	SearchConsoleSiteURL string `gorm:"column:search_console_site_url;size:512" json:"searchConsoleSiteUrl,omitempty"`
	AnalyticsPropertyID  string `gorm:"column:analytics_property_id;size:64" json:"analyticsPropertyId,omitempty"`

	SearchConsoleConnected bool `gorm:"column:search_console_connected;default:false" json:"searchConsoleConnected"`
	AnalyticsConnected     bool `gorm:"column:analytics_connected;default:false" json:"analyticsConnected"`
}

func (Client) TableName() string {
	return "clients"
}

// HasGoogleConnection reports whether any Google data source can be queried
func (c *Client) HasGoogleConnection() bool {
	return c.GoogleRefreshToken != "" && (c.SearchConsoleConnected || c.AnalyticsConnected)
}

// CreateClientRequest is the POST /clients body
type CreateClientRequest struct {
	Name                 string `json:"name" binding:"required,min=1,max=255"`
	Domain               string `json:"domain" binding:"required,max=255"`
	ContactEmail         string `json:"contactEmail" binding:"omitempty,email"`
	SearchConsoleSiteURL string `json:"searchConsoleSiteUrl" binding:"omitempty,max=512"`
	AnalyticsPropertyID  string `json:"analyticsPropertyId" binding:"omitempty,numeric"`
}
