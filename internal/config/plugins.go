package config

// PluginSettings is the part of pluginsConfig.<name> read by the plugin registry itself;
// everything else is handed to the plugin untouched
type PluginSettings struct {
	// Command is the executable to run for external command plugins (optional)
	// If empty, the name must match a built-in plugin
	Command string

	// Outputs lists the output formats the plugin applies to
	// If empty, applies to all outputs
	Outputs []string

	// Before lists plugins that should run after this one
	Before []string

	// After lists plugins that should run before this one
	After []string

	// Hooks lists the hooks an external command handles
	// If empty, the command only runs for "page:before"
	Hooks []string

	// Extra holds the remaining keys
	Extra map[string]any
}

// PluginSettings decodes pluginsConfig.<name>
func (c *Config) PluginSettings(name string) PluginSettings {
	m := c.PluginConfig(name)
	s := PluginSettings{Extra: map[string]any{}}
	for k, v := range m {
		switch k {
		case "command":
			s.Command, _ = v.(string)
		case "outputs":
			s.Outputs = toStrings(v)
		case "before":
			s.Before = toStrings(v)
		case "after":
			s.After = toStrings(v)
		case "hooks":
			s.Hooks = toStrings(v)
		default:
			s.Extra[k] = v
		}
	}
	return s
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
