package model

// Tag is a user-defined label that can be attached to any number of snippets.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	UserID string `json:"-"`
}

// SnippetTag is one membership row in the snippet↔tag many-to-many join.
// Memberships are created and removed only as a side effect of snippet or
// tag mutations, never addressed directly by the UI.
type SnippetTag struct {
	SnippetID string `json:"snippetId"`
	TagID     string `json:"tagId"`
}

// TagColors is the fixed palette used when a tag is created without an
// explicit color.
var TagColors = []string{
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#14b8a6", // teal
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#64748b", // slate
}

// DefaultTagColor picks a palette color for a tag name. The pick is
// deterministic so the same name always lands on the same color.
func DefaultTagColor(name string) string {
	var h uint32
	for _, r := range name {
		h = h*31 + uint32(r)
	}
	return TagColors[int(h)%len(TagColors)]
}
