package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/geocine/folio/internal/errs"
)

// Version is reported to templates and outputs as gitbook.version
const Version = "1.0.0"

// EnvPrefix marks environment variables that override the book configuration
const EnvPrefix = "FOLIO_"

// Files are the configuration file names tried in order; the first one found wins
var Files = []string{"book.js", "book.json", "book.yaml", "book.yml", "book.toml"}

// DefaultPlugins are enabled for every book unless removed with "-name"
var DefaultPlugins = []string{"search"}

// Plugin is an entry of the plugins list
type Plugin struct {
	Name    string
	Version string
}

// Structure names the structural files of a book
type Structure struct {
	Readme   string `json:"readme" yaml:"readme" toml:"readme"`
	Summary  string `json:"summary" yaml:"summary" toml:"summary"`
	Glossary string `json:"glossary" yaml:"glossary" toml:"glossary"`
	Langs    string `json:"langs" yaml:"langs" toml:"langs"`
}

// DefaultStructure returns the default structural file names
func DefaultStructure() Structure {
	return Structure{
		Readme:   "README.md",
		Summary:  "SUMMARY.md",
		Glossary: "GLOSSARY.md",
		Langs:    "LANGS.md",
	}
}

// Config is an immutable snapshot of a book configuration.
// Updates return a new snapshot and leave the receiver untouched.
type Config struct {
	path      string
	raw       map[string]any
	structure Structure
}

// Default returns the configuration of a book without configuration file
func Default() *Config {
	c, _ := New(nil, nil)
	return c
}

// New validates raw merged over base and fills defaults
func New(raw, base map[string]any) (*Config, error) {
	merged := copyMap(base)
	for k, v := range raw {
		merged[k] = copyValue(v)
	}
	return build("", merged)
}

func build(file string, raw map[string]any) (*Config, error) {
	applyDefaults(raw)
	if err := validate(file, raw); err != nil {
		return nil, err
	}

	c := &Config{path: file, raw: raw, structure: DefaultStructure()}
	if s, ok := raw["structure"].(map[string]any); ok {
		if v, ok := s["readme"].(string); ok && v != "" {
			c.structure.Readme = v
		}
		if v, ok := s["summary"].(string); ok && v != "" {
			c.structure.Summary = v
		}
		if v, ok := s["glossary"].(string); ok && v != "" {
			c.structure.Glossary = v
		}
		if v, ok := s["langs"].(string); ok && v != "" {
			c.structure.Langs = v
		}
	}
	return c, nil
}

// Load looks for a configuration file in root and returns the resulting snapshot.
// base values are used where the file is silent. Environment overrides are applied last.
func Load(fsys fs.FS, root string, base map[string]any) (*Config, error) {
	for _, name := range Files {
		file := path.Join(root, name)
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			continue
		}

		if name == "book.js" {
			return nil, errs.Configuration(file, "book.js configurations cannot be evaluated, use book.json", nil)
		}

		raw, err := decode(name, data)
		if err != nil {
			return nil, errs.Configuration(file, "failed to parse config file", err)
		}

		merged := copyMap(base)
		for k, v := range raw {
			merged[k] = v
		}
		UpdateFromEnv(merged, os.Environ())
		return build(name, merged)
	}

	merged := copyMap(base)
	UpdateFromEnv(merged, os.Environ())
	return build("", merged)
}

// LoadFromString parses content in the format implied by name's extension
func LoadFromString(name, content string) (*Config, error) {
	raw, err := decode(name, []byte(content))
	if err != nil {
		return nil, errs.Configuration(name, "failed to parse config", err)
	}
	return build(name, raw)
}

func decode(name string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	switch path.Ext(name) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", path.Ext(name))
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// UpdateFromEnv applies FOLIO_ variables to raw.
// FOLIO_TITLE -> title, FOLIO_PLUGINSCONFIG__SEARCH__MAXINDEXSIZE -> pluginsConfig.search.maxIndexSize.
// Key segments are matched case-insensitively against existing keys.
// Values are decoded as YAML scalars so "true" and "12" keep their types.
func UpdateFromEnv(raw map[string]any, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, EnvPrefix) {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimPrefix(parts[0], EnvPrefix)
		if key == "" {
			continue
		}

		var value any = parts[1]
		var decoded any
		if err := yaml.Unmarshal([]byte(parts[1]), &decoded); err == nil && decoded != nil {
			switch decoded.(type) {
			case bool, int, float64:
				value = decoded
			}
		}

		setPath(raw, strings.Split(strings.ToLower(key), "__"), value)
	}
}

var knownKeys = []string{
	"root", "title", "description", "isbn", "author", "language", "direction", "gitbook",
	"theme", "variables", "plugins", "pluginsConfig", "structure", "pdf", "cover", "links",
}

func setPath(raw map[string]any, parts []string, value any) {
	current := raw
	for i, part := range parts {
		key := matchKey(current, part)
		if i == len(parts)-1 {
			current[key] = value
			return
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
}

func matchKey(m map[string]any, part string) string {
	for k := range m {
		if strings.EqualFold(k, part) {
			return k
		}
	}
	for _, k := range knownKeys {
		if strings.EqualFold(k, part) {
			return k
		}
	}
	return part
}

func applyDefaults(raw map[string]any) {
	if _, ok := raw["gitbook"]; !ok {
		raw["gitbook"] = "*"
	}
	if _, ok := raw["theme"]; !ok {
		raw["theme"] = "default"
	}
	if _, ok := raw["plugins"]; !ok {
		raw["plugins"] = []any{}
	}
	if _, ok := raw["variables"]; !ok {
		raw["variables"] = map[string]any{}
	}
	if _, ok := raw["pluginsConfig"]; !ok {
		raw["pluginsConfig"] = map[string]any{}
	}
}

func validate(file string, raw map[string]any) error {
	for _, key := range []string{"root", "title", "description", "isbn", "author", "language", "direction", "gitbook", "theme"} {
		if v, ok := raw[key]; ok && v != nil {
			if _, isStr := v.(string); !isStr {
				return errs.Configuration(file, fmt.Sprintf("%q should be a string", key), nil)
			}
		}
	}

	switch dir, _ := raw["direction"].(string); dir {
	case "", "ltr", "rtl":
	default:
		return errs.Configuration(file, fmt.Sprintf("direction should be \"ltr\" or \"rtl\", got %q", dir), nil)
	}

	if root, _ := raw["root"].(string); root != "" {
		if !validRelative(root) {
			return errs.Configuration(file, fmt.Sprintf("root %q should be a path inside the book", root), nil)
		}
	}

	if s, ok := raw["structure"]; ok && s != nil {
		m, isMap := s.(map[string]any)
		if !isMap {
			return errs.Configuration(file, "structure should be an object", nil)
		}
		for k, v := range m {
			switch k {
			case "readme", "summary", "glossary", "langs":
			default:
				return errs.Configuration(file, fmt.Sprintf("unknown structure entry %q", k), nil)
			}
			name, isStr := v.(string)
			if !isStr || name == "" || !validRelative(name) {
				return errs.Configuration(file, fmt.Sprintf("structure.%s should be a relative file name", k), nil)
			}
		}
	}

	if _, ok := raw["variables"].(map[string]any); !ok {
		return errs.Configuration(file, "variables should be an object", nil)
	}
	if _, ok := raw["pluginsConfig"].(map[string]any); !ok {
		return errs.Configuration(file, "pluginsConfig should be an object", nil)
	}

	if _, err := parsePlugins(raw["plugins"]); err != nil {
		return errs.Configuration(file, "invalid plugins list", err)
	}
	return nil
}

func validRelative(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func parsePlugins(v any) ([]Plugin, error) {
	var entries []any
	switch t := v.(type) {
	case nil:
	case string:
		for _, s := range strings.Split(t, ",") {
			entries = append(entries, s)
		}
	case []any:
		entries = t
	case []string:
		for _, s := range t {
			entries = append(entries, s)
		}
	default:
		return nil, fmt.Errorf("plugins should be a list or a comma separated string")
	}

	var out []Plugin
	for _, e := range entries {
		switch t := e.(type) {
		case string:
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			name, version, _ := strings.Cut(t, "@")
			out = append(out, Plugin{Name: name, Version: version})
		case map[string]any:
			name, _ := t["name"].(string)
			if name == "" {
				return nil, fmt.Errorf("plugin entries need a name")
			}
			version, _ := t["version"].(string)
			out = append(out, Plugin{Name: name, Version: version})
		default:
			return nil, fmt.Errorf("unexpected plugin entry %v", e)
		}
	}
	return out, nil
}

// Path returns the configuration file the snapshot was loaded from, if any
func (c *Config) Path() string { return c.path }

// Exists reports whether the book has a configuration file
func (c *Config) Exists() bool { return c.path != "" }

// Get retrieves a value using dot notation (e.g., "pluginsConfig.search.maxIndexSize")
func (c *Config) Get(key string) (any, bool) {
	var current any = c.raw
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return copyValue(current), true
}

// GetString retrieves a string value from config
func (c *Config) GetString(key, defaultVal string) string {
	val, ok := c.Get(key)
	if !ok {
		return defaultVal
	}
	if s, isStr := val.(string); isStr {
		return s
	}
	return defaultVal
}

// GetBool retrieves a bool value from config
func (c *Config) GetBool(key string, defaultVal bool) bool {
	val, ok := c.Get(key)
	if !ok {
		return defaultVal
	}
	if b, isBool := val.(bool); isBool {
		return b
	}
	return defaultVal
}

// GetInt retrieves a numeric value from config
func (c *Config) GetInt(key string, defaultVal int) int {
	val, ok := c.Get(key)
	if !ok {
		return defaultVal
	}
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return defaultVal
}

// GetMap retrieves an object value from config, or an empty map
func (c *Config) GetMap(key string) map[string]any {
	val, ok := c.Get(key)
	if !ok {
		return map[string]any{}
	}
	if m, isMap := val.(map[string]any); isMap {
		return m
	}
	return map[string]any{}
}

// Dump returns a deep copy of the configuration values
func (c *Config) Dump() map[string]any {
	return copyMap(c.raw)
}

// With returns a snapshot where key (dot notation) is set to value
func (c *Config) With(key string, value any) (*Config, error) {
	raw := copyMap(c.raw)
	current := raw
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = copyValue(value)
	return build(c.path, raw)
}

// Replace returns a snapshot holding values, keeping the configuration file path
func (c *Config) Replace(values map[string]any) (*Config, error) {
	return build(c.path, copyMap(values))
}

func (c *Config) Root() string        { return c.GetString("root", "") }
func (c *Config) Title() string       { return c.GetString("title", "") }
func (c *Config) Description() string { return c.GetString("description", "") }
func (c *Config) ISBN() string        { return c.GetString("isbn", "") }
func (c *Config) Author() string      { return c.GetString("author", "") }
func (c *Config) Language() string    { return c.GetString("language", "") }
func (c *Config) Direction() string   { return c.GetString("direction", "") }
func (c *Config) Theme() string       { return c.GetString("theme", "default") }

// Variables returns the templating variables declared by the book
func (c *Config) Variables() map[string]any { return c.GetMap("variables") }

// PluginConfig returns pluginsConfig.<name>
func (c *Config) PluginConfig(name string) map[string]any {
	m, _ := c.GetMap("pluginsConfig")[name].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Plugins returns the normalized plugin list: defaults appended, "-name" entries removed,
// duplicates dropped (first wins)
func (c *Config) Plugins() []Plugin {
	list, _ := parsePlugins(c.raw["plugins"])

	removed := map[string]bool{}
	for _, p := range list {
		if strings.HasPrefix(p.Name, "-") {
			removed[p.Name[1:]] = true
		}
	}

	for _, name := range DefaultPlugins {
		found := false
		for _, p := range list {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			list = append(list, Plugin{Name: name})
		}
	}

	seen := map[string]bool{}
	out := make([]Plugin, 0, len(list))
	for _, p := range list {
		if strings.HasPrefix(p.Name, "-") || removed[p.Name] || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}

// Structure returns the configured structural file names
func (c *Config) Structure() Structure { return c.structure }

// StructureBase returns the structural file name for kind without its extension
// (e.g., "readme" -> "README"), used to look the file up with any parser extension
func (c *Config) StructureBase(kind string) string {
	var name string
	switch kind {
	case "readme":
		name = c.structure.Readme
	case "summary":
		name = c.structure.Summary
	case "glossary":
		name = c.structure.Glossary
	case "langs":
		name = c.structure.Langs
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// Keys returns the sorted top-level keys
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
