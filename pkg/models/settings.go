package models

// SiteSetting is a single named site-wide value from ic_web_site_settings.
type SiteSetting struct {
	Name  string `json:"setting_name"`
	Value string `json:"setting_value"`
}

// SiteSettings maps setting names to values.
type SiteSettings map[string]string
