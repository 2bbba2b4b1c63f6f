package model

// Languages is the fixed set of language codes a snippet may carry.
// The codes double as editor syntax-highlighting modes, which is why the
// set is closed rather than free-form.
var Languages = []string{
	"typescript",
	"javascript",
	"python",
	"rust",
	"go",
	"java",
	"csharp",
	"cpp",
	"c",
	"ruby",
	"php",
	"swift",
	"kotlin",
	"dart",
	"sql",
	"html",
	"css",
	"scss",
	"json",
	"yaml",
	"toml",
	"markdown",
	"bash",
	"dockerfile",
	"graphql",
	"plaintext",
}

// LanguageDisplayNames maps a language code to its human-readable name.
var LanguageDisplayNames = map[string]string{
	"typescript": "TypeScript",
	"javascript": "JavaScript",
	"python":     "Python",
	"rust":       "Rust",
	"go":         "Go",
	"java":       "Java",
	"csharp":     "C#",
	"cpp":        "C++",
	"c":          "C",
	"ruby":       "Ruby",
	"php":        "PHP",
	"swift":      "Swift",
	"kotlin":     "Kotlin",
	"dart":       "Dart",
	"sql":        "SQL",
	"html":       "HTML",
	"css":        "CSS",
	"scss":       "SCSS",
	"json":       "JSON",
	"yaml":       "YAML",
	"toml":       "TOML",
	"markdown":   "Markdown",
	"bash":       "Bash",
	"dockerfile": "Dockerfile",
	"graphql":    "GraphQL",
	"plaintext":  "Plain Text",
}

// ValidLanguage reports whether code is a member of the language enum.
func ValidLanguage(code string) bool {
	_, ok := LanguageDisplayNames[code]
	return ok
}
