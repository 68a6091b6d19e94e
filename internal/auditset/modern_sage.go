package auditset

// ModernSageName is the registry name of the built-in brand set.
const ModernSageName = "modern-sage"

// ModernSage returns the built-in Modern Sage brand palette pairs. The set
// names no level, so callers choose one. At AA every pair passes except the
// muted overlay at body size.
func ModernSage() *Set {
	return &Set{
		Name:  ModernSageName,
		Title: "Modern Sage Contrast Audit",
		Unit:  "px",
		Pairs: []Entry{
			{Label: "primary button", Text: "Get started", Foreground: "rgb(255, 255, 255)", Background: "rgb(85, 124, 118)", FontSize: 16, FontWeight: "600"},
			{Label: "success badge", Text: "Active", Foreground: "rgb(255, 255, 255)", Background: "rgb(63, 129, 35)", FontSize: 14},
			{Label: "body on sage surface", Text: "Plan your week with Telesis", Foreground: "rgb(44, 49, 58)", Background: "rgb(211, 223, 221)", FontSize: 16},
			{Label: "muted overlay", Text: "Secondary caption", Foreground: "rgb(107, 136, 132)", Background: "rgb(255, 255, 255)", FontSize: 16},
			{Label: "muted overlay (large)", Text: "Section heading", Foreground: "rgb(107, 136, 132)", Background: "rgb(255, 255, 255)", FontSize: 24},
			{Label: "body text", Text: "Your dashboard is ready.", Foreground: "rgb(44, 49, 58)", Background: "rgb(245, 247, 246)", FontSize: 16},
			{Label: "heading", Text: "Welcome back", Foreground: "rgb(31, 41, 55)", Background: "rgb(255, 255, 255)", FontSize: 32, FontWeight: "bold"},
			{Label: "muted caption", Text: "Last updated just now", Foreground: "rgb(107, 114, 128)", Background: "rgb(255, 255, 255)", FontSize: 14},
		},
	}
}
