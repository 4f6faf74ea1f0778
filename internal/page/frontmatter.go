package page

import (
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// YAML front matter: --- ... --- (content can be empty)
	yamlFrontMatter = regexp.MustCompile(`(?s)^---[ \t]*\r?\n(.*?)\r?\n?---\s*(?:\n|$)`)
	// TOML front matter: +++ ... +++
	tomlFrontMatter = regexp.MustCompile(`(?s)^\+\+\+[ \t]*\r?\n(.*?)\r?\n?\+\+\+\s*(?:\n|$)`)
)

// FrontMatter is the metadata block found at the very start of a page
type FrontMatter struct {
	Attributes map[string]any
	Body       string
}

// Description returns the "description" attribute, if it is a string
func (fm FrontMatter) Description() string {
	if s, ok := fm.Attributes["description"].(string); ok {
		return s
	}
	return ""
}

// SplitFrontMatter separates a YAML (---) or TOML (+++) front matter from the body.
// Content without front matter is returned as the body with no attributes.
func SplitFrontMatter(content string) (FrontMatter, error) {
	if m := yamlFrontMatter.FindStringSubmatch(content); m != nil {
		attrs := map[string]any{}
		if err := yaml.Unmarshal([]byte(m[1]), &attrs); err != nil {
			return FrontMatter{}, fmt.Errorf("invalid YAML front matter: %w", err)
		}
		return FrontMatter{Attributes: nonNil(attrs), Body: content[len(m[0]):]}, nil
	}

	if m := tomlFrontMatter.FindStringSubmatch(content); m != nil {
		attrs := map[string]any{}
		if err := toml.Unmarshal([]byte(m[1]), &attrs); err != nil {
			return FrontMatter{}, fmt.Errorf("invalid TOML front matter: %w", err)
		}
		return FrontMatter{Attributes: nonNil(attrs), Body: content[len(m[0]):]}, nil
	}

	return FrontMatter{Attributes: map[string]any{}, Body: content}, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
