package models

import "time"

// PageStatus is the publication state of a page.
type PageStatus string

const (
	PageDraft     PageStatus = "draft"
	PagePublished PageStatus = "published"
)

// PageContent holds the hero-section text of a page.
type PageContent struct {
	Headline      string `json:"headline"`
	Excerpt       string `json:"excerpt"`
	CallToAction  string `json:"call_to_action"`
	NodeID        string `json:"node_id,omitempty"`
	Depth         int    `json:"depth"`
	ChildrenCount int    `json:"children_count"`
}

// Page is a content page row from ic_web_pages.
type Page struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Language    string      `json:"language"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     PageContent `json:"content"`
	Status      PageStatus  `json:"status"`
	CreatedBy   string      `json:"created_by,omitempty"`
	UpdatedBy   string      `json:"updated_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SEOMeta holds per-page search and social metadata from ic_web_seo_meta.
type SEOMeta struct {
	ID              string `json:"id,omitempty"`
	PageSlug        string `json:"page_slug"`
	Language        string `json:"language"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	Keywords        string `json:"keywords,omitempty"`
	OGTitle         string `json:"og_title,omitempty"`
	OGDescription   string `json:"og_description,omitempty"`
	OGImage         string `json:"og_image,omitempty"`
	CanonicalURL    string `json:"canonical_url,omitempty"`
	Robots          string `json:"robots,omitempty"`
}
