// Package plugins loads the plugins of a book and dispatches their hooks, filters and blocks.
package plugins

import (
	"context"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/template"
)

// Hook names
const (
	HookConfig       = "config"
	HookInit         = "init"
	HookFinishBefore = "finish:before"
	HookFinish       = "finish"
	HookPageBefore   = "page:before"
	HookPage         = "page"
)

// PageInput is the page handed to page hooks
type PageInput struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Path    string `json:"path"`
	RawPath string `json:"rawPath"`
	Title   string `json:"title"`
}

// ConfigHook receives the configuration values and returns the ones to use; nil keeps them
type ConfigHook func(ctx context.Context, cfg map[string]any) (map[string]any, error)

// LifecycleHook runs at init, finish:before and finish
type LifecycleHook func(ctx context.Context) error

// PageHook returns the new content of the page; "" keeps it
type PageHook func(ctx context.Context, page PageInput) (string, error)

// Hooks are the hooks a plugin implements, nil entries are skipped
type Hooks struct {
	Config ConfigHook

	Init         LifecycleHook
	FinishBefore LifecycleHook
	Finish       LifecycleHook

	PageBefore PageHook
	Page       PageHook
}

// Plugin extends the generation of a book
type Plugin interface {
	Name() string
	Hooks() Hooks
	Filters() map[string]any
	Blocks() map[string]template.Block
}

// Host is the output a plugin runs in
type Host interface {
	// Name is the output format: website, json or ebook
	Name() string
	ToURL(file string) string
	WriteFile(name string, data []byte) error
}

// Env is what a plugin is created with
type Env struct {
	Host Host
	// Root is the book root on disk, the working directory of external commands
	Root string
	// Book returns the "book" context of the book being generated
	Book func() map[string]any
	// Config returns the current configuration values
	Config   func() map[string]any
	Settings config.PluginSettings
	Logger   *zap.Logger
}

// Factory creates a built-in plugin
type Factory func(env Env) (Plugin, error)

// Base implements Plugin with nothing; built-ins embed it and override what they need
type Base struct {
	PluginName string
}

func (b Base) Name() string { return b.PluginName }

func (b Base) Hooks() Hooks { return Hooks{} }

func (b Base) Filters() map[string]any { return nil }

func (b Base) Blocks() map[string]template.Block { return nil }
