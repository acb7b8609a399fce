package models

import "time"

// ChangeEntry records one administrative change made through the admin API.
type ChangeEntry struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Target     string    `json:"target"`
	CacheKeys  []string  `json:"cache_keys,omitempty"`
	Actor      string    `json:"actor"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditConfig controls the change audit log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// AuditQueryOpts specifies filters for querying change entries.
type AuditQueryOpts struct {
	Operation string
	Target    string
	Since     time.Time
	Limit     int
}

// AuditStat holds aggregate change counts for an operation/day combination.
type AuditStat struct {
	Operation string `json:"operation"`
	Day       string `json:"day"`
	Count     int    `json:"count"`
}
