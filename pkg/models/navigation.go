package models

// NavItem is a flat navigation row as stored in ic_web_navigation.
// A nil ParentID marks a top-level item.
type NavItem struct {
	ID            string  `json:"id"`
	MenuKey       string  `json:"menu_key"`
	Language      string  `json:"language"`
	ParentID      *string `json:"parent_id"`
	Label         string  `json:"label"`
	URL           string  `json:"url"`
	OrderPosition int     `json:"order_position"`
	Icon          string  `json:"icon,omitempty"`
	IsExternal    bool    `json:"is_external"`
	IsActive      bool    `json:"is_active"`
}

// HasParent reports whether the item declares a parent reference.
func (n NavItem) HasParent() bool {
	return n.ParentID != nil && *n.ParentID != ""
}

// NavNode is a navigation item placed in a menu tree.
type NavNode struct {
	NavItem
	Children []*NavNode `json:"children"`
}
