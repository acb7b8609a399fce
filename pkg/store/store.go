// Package store holds what the content backends share.
package store

import "errors"

// ErrNotFound is returned when a query matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with another row's unique key.
var ErrConflict = errors.New("conflict")

// Backend table names.
const (
	TablePages      = "ic_web_pages"
	TableNavigation = "ic_web_navigation"
	TableSettings   = "ic_web_site_settings"
	TableSEO        = "ic_web_seo_meta"
)
