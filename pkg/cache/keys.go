package cache

// SettingsKey is the single key under which site settings are cached.
const SettingsKey = "settings:site"

// PageKey identifies a page by slug and language.
func PageKey(slug, language string) string {
	return "page:" + slug + ":" + language
}

// NavKey identifies a navigation menu by menu key and language.
func NavKey(menuKey, language string) string {
	return "nav:" + menuKey + ":" + language
}

// SEOKey identifies a page's SEO metadata by slug and language.
func SEOKey(slug, language string) string {
	return "seo:" + slug + ":" + language
}
