package plugins

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/template"
)

// Registry holds the plugins loaded for one output, in execution order
type Registry struct {
	logger   *zap.Logger
	builtins map[string]Factory
	plugins  []Plugin
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:   logger,
		builtins: map[string]Factory{},
	}
}

// Register makes a built-in plugin available to Load
func (r *Registry) Register(name string, f Factory) {
	r.builtins[name] = f
}

// Load creates the plugins listed by cfg. Plugins with a configured command run as external
// commands, the others must be built-ins. Plugins restricted to other outputs are skipped.
func (r *Registry) Load(cfg *config.Config, env Env) error {
	if env.Logger == nil {
		env.Logger = r.logger
	}

	var names []string
	before := map[string][]string{}
	after := map[string][]string{}
	settings := map[string]config.PluginSettings{}

	for _, p := range cfg.Plugins() {
		s := cfg.PluginSettings(p.Name)
		if len(s.Outputs) > 0 && env.Host != nil && !slices.Contains(s.Outputs, env.Host.Name()) {
			r.logger.Debug("Skipping plugin for output",
				zap.String("plugin", p.Name), zap.String("output", env.Host.Name()))
			continue
		}
		names = append(names, p.Name)
		before[p.Name] = s.Before
		after[p.Name] = s.After
		settings[p.Name] = s
	}

	ordered, err := TopoSort(names, before, after)
	if err != nil {
		return errs.Configuration(cfg.Path(), "failed to resolve plugin order", err)
	}

	r.plugins = r.plugins[:0]
	for _, name := range ordered {
		penv := env
		penv.Settings = settings[name]
		penv.Logger = env.Logger.With(zap.String("plugin", name))

		if penv.Settings.Command != "" {
			r.plugins = append(r.plugins, NewExternal(name, penv))
			continue
		}

		factory, ok := r.builtins[name]
		if !ok {
			return errs.Plugin(name, "couldn't locate plugin", nil)
		}
		p, err := factory(penv)
		if err != nil {
			return errs.Plugin(name, "failed to load plugin", err)
		}
		r.plugins = append(r.plugins, p)
	}

	r.logger.Debug("Plugins loaded", zap.Strings("plugins", r.Names()))
	return nil
}

// Plugins returns the loaded plugins in execution order
func (r *Registry) Plugins() []Plugin {
	return r.plugins
}

// Names returns the names of the loaded plugins in execution order
func (r *Registry) Names() []string {
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// HookConfig passes the configuration values through every config hook
func (r *Registry) HookConfig(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	for _, p := range r.plugins {
		hook := p.Hooks().Config
		if hook == nil {
			continue
		}
		out, err := hook(ctx, cfg)
		if err != nil {
			return nil, pluginError(p.Name(), HookConfig, err)
		}
		if out != nil {
			cfg = out
		}
	}
	return cfg, nil
}

// HookLifecycle runs the init, finish:before or finish hook of every plugin
func (r *Registry) HookLifecycle(ctx context.Context, name string) error {
	for _, p := range r.plugins {
		var hook LifecycleHook
		switch h := p.Hooks(); name {
		case HookInit:
			hook = h.Init
		case HookFinishBefore:
			hook = h.FinishBefore
		case HookFinish:
			hook = h.Finish
		default:
			return errs.Plugin(p.Name(), fmt.Sprintf("unknown lifecycle hook %q", name), nil)
		}
		if hook == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := hook(ctx); err != nil {
			return pluginError(p.Name(), name, err)
		}
	}
	return nil
}

// HookPage chains the page:before or page hook of every plugin and returns the final content
func (r *Registry) HookPage(ctx context.Context, name string, in PageInput) (string, error) {
	for _, p := range r.plugins {
		var hook PageHook
		switch h := p.Hooks(); name {
		case HookPageBefore:
			hook = h.PageBefore
		case HookPage:
			hook = h.Page
		default:
			return "", errs.Plugin(p.Name(), fmt.Sprintf("unknown page hook %q", name), nil)
		}
		if hook == nil {
			continue
		}
		out, err := hook(ctx, in)
		if err != nil {
			return "", pluginError(p.Name(), name, err)
		}
		if out != "" {
			in.Content = out
		}
	}
	return in.Content, nil
}

// Filters returns the filters of every plugin, the first plugin wins on conflicts
func (r *Registry) Filters() map[string]any {
	out := map[string]any{}
	for _, p := range r.plugins {
		for name, fn := range p.Filters() {
			if _, ok := out[name]; ok {
				r.logger.Warn("Conflict in filters, filter is already set",
					zap.String("plugin", p.Name()), zap.String("filter", name))
				continue
			}
			out[name] = fn
		}
	}
	return out
}

// Blocks returns the blocks of every plugin, the last plugin wins on conflicts
func (r *Registry) Blocks() map[string]template.Block {
	out := map[string]template.Block{}
	for _, p := range r.plugins {
		for name, b := range p.Blocks() {
			out[name] = b
		}
	}
	return out
}

func pluginError(name, hook string, err error) error {
	if _, ok := err.(*errs.Error); ok {
		return err
	}
	return errs.Plugin(name, fmt.Sprintf("hook %q failed", hook), err)
}
