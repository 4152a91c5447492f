package model

// LanguageOption describes one entry of the fixed language list.
type LanguageOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// Languages is the fixed set of language identifiers a snippet may carry.
// Kind is the default kind a client should preselect for the language.
var Languages = []LanguageOption{
	{Value: "javascript", Label: "JavaScript", Kind: KindCode},
	{Value: "typescript", Label: "TypeScript", Kind: KindCode},
	{Value: "python", Label: "Python", Kind: KindCode},
	{Value: "java", Label: "Java", Kind: KindCode},
	{Value: "sql", Label: "SQL", Kind: KindSQL},
	{Value: "bash", Label: "Shell/Bash", Kind: KindCode},
	{Value: "html", Label: "HTML", Kind: KindCode},
	{Value: "css", Label: "CSS", Kind: KindCode},
	{Value: "json", Label: "JSON", Kind: KindCode},
	{Value: "yaml", Label: "YAML", Kind: KindCode},
	{Value: "markdown", Label: "Markdown", Kind: KindCode},
	{Value: "plaintext", Label: "Plain text", Kind: KindText},
}

// KnownLanguage reports whether lang is in the fixed set.
func KnownLanguage(lang string) bool {
	for _, opt := range Languages {
		if opt.Value == lang {
			return true
		}
	}
	return false
}

// LanguageKind returns the default kind for lang, or KindCode when unknown.
func LanguageKind(lang string) Kind {
	for _, opt := range Languages {
		if opt.Value == lang {
			return opt.Kind
		}
	}
	return KindCode
}
