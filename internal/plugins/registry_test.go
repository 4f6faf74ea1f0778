package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/template"
)

type fakeHost struct {
	name  string
	files map[string][]byte
}

func (h *fakeHost) Name() string { return h.name }

func (h *fakeHost) ToURL(file string) string { return file }

func (h *fakeHost) WriteFile(name string, data []byte) error {
	if h.files == nil {
		h.files = map[string][]byte{}
	}
	h.files[name] = data
	return nil
}

type testPlugin struct {
	Base
	hooks   Hooks
	filters map[string]any
	blocks  map[string]template.Block
}

func (p *testPlugin) Hooks() Hooks { return p.hooks }

func (p *testPlugin) Filters() map[string]any { return p.filters }

func (p *testPlugin) Blocks() map[string]template.Block { return p.blocks }

func factory(p *testPlugin) Factory {
	return func(Env) (Plugin, error) { return p, nil }
}

func newConfig(t *testing.T, raw map[string]any) *config.Config {
	t.Helper()
	cfg, err := config.New(raw, nil)
	require.NoError(t, err)
	return cfg
}

func TestRegistryLoadOrder(t *testing.T) {
	cfg := newConfig(t, map[string]any{
		"plugins": []any{"-search", "a", "b", "c"},
		"pluginsConfig": map[string]any{
			"a": map[string]any{"after": []any{"c"}},
		},
	})

	r := NewRegistry(nil)
	for _, name := range []string{"a", "b", "c"} {
		r.Register(name, factory(&testPlugin{Base: Base{PluginName: name}}))
	}
	require.NoError(t, r.Load(cfg, Env{Host: &fakeHost{name: "website"}}))
	assert.Equal(t, []string{"b", "c", "a"}, r.Names())
}

func TestRegistryLoadSkipsOtherOutputs(t *testing.T) {
	cfg := newConfig(t, map[string]any{
		"plugins": []any{"-search", "epub-only"},
		"pluginsConfig": map[string]any{
			"epub-only": map[string]any{"outputs": []any{"ebook"}},
		},
	})

	r := NewRegistry(nil)
	r.Register("epub-only", factory(&testPlugin{Base: Base{PluginName: "epub-only"}}))

	require.NoError(t, r.Load(cfg, Env{Host: &fakeHost{name: "website"}}))
	assert.Empty(t, r.Names())

	require.NoError(t, r.Load(cfg, Env{Host: &fakeHost{name: "ebook"}}))
	assert.Equal(t, []string{"epub-only"}, r.Names())
}

func TestRegistryLoadMissingPlugin(t *testing.T) {
	cfg := newConfig(t, map[string]any{"plugins": []any{"-search", "missing"}})

	err := NewRegistry(nil).Load(cfg, Env{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPlugin))
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistryLoadCycle(t *testing.T) {
	cfg := newConfig(t, map[string]any{
		"plugins": []any{"-search", "a", "b"},
		"pluginsConfig": map[string]any{
			"a": map[string]any{"before": "b"},
			"b": map[string]any{"before": "a"},
		},
	})
	r := NewRegistry(nil)
	r.Register("a", factory(&testPlugin{Base: Base{PluginName: "a"}}))
	r.Register("b", factory(&testPlugin{Base: Base{PluginName: "b"}}))

	err := r.Load(cfg, Env{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
}

func TestRegistryHooks(t *testing.T) {
	ctx := context.Background()
	var calls []string

	first := &testPlugin{Base: Base{PluginName: "first"}, hooks: Hooks{
		Config: func(_ context.Context, cfg map[string]any) (map[string]any, error) {
			out := map[string]any{}
			for k, v := range cfg {
				out[k] = v
			}
			out["title"] = "Changed"
			return out, nil
		},
		Init: func(context.Context) error {
			calls = append(calls, "first:init")
			return nil
		},
		PageBefore: func(_ context.Context, p PageInput) (string, error) {
			return p.Content + " first", nil
		},
	}}
	second := &testPlugin{Base: Base{PluginName: "second"}, hooks: Hooks{
		Config: func(context.Context, map[string]any) (map[string]any, error) { return nil, nil },
		Init: func(context.Context) error {
			calls = append(calls, "second:init")
			return nil
		},
		PageBefore: func(_ context.Context, p PageInput) (string, error) {
			return "", nil
		},
		Finish: func(context.Context) error { return errors.New("disk full") },
	}}

	cfg := newConfig(t, map[string]any{"plugins": []any{"-search", "first", "second"}})
	r := NewRegistry(nil)
	r.Register("first", factory(first))
	r.Register("second", factory(second))
	require.NoError(t, r.Load(cfg, Env{}))

	values, err := r.HookConfig(ctx, map[string]any{"title": "Original"})
	require.NoError(t, err)
	assert.Equal(t, "Changed", values["title"])

	require.NoError(t, r.HookLifecycle(ctx, HookInit))
	assert.Equal(t, []string{"first:init", "second:init"}, calls)

	content, err := r.HookPage(ctx, HookPageBefore, PageInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello first", content)

	content, err = r.HookPage(ctx, HookPage, PageInput{Content: "untouched"})
	require.NoError(t, err)
	assert.Equal(t, "untouched", content)

	err = r.HookLifecycle(ctx, HookFinish)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPlugin))
	assert.Contains(t, err.Error(), "disk full")
}

func TestRegistryFiltersAndBlocks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	upper := func(s string) string { return strings.ToUpper(s) }
	lower := func(s string) string { return strings.ToLower(s) }

	a := &testPlugin{
		Base:    Base{PluginName: "a"},
		filters: map[string]any{"shout": upper},
		blocks:  map[string]template.Block{"note": {Shortcuts: []template.Shortcut{{Start: "!!", End: "!!"}}}},
	}
	b := &testPlugin{
		Base:    Base{PluginName: "b"},
		filters: map[string]any{"shout": lower},
		blocks:  map[string]template.Block{"note": {}},
	}

	cfg := newConfig(t, map[string]any{"plugins": []any{"-search", "a", "b"}})
	r := NewRegistry(zap.New(core))
	r.Register("a", factory(a))
	r.Register("b", factory(b))
	require.NoError(t, r.Load(cfg, Env{}))

	filters := r.Filters()
	require.Contains(t, filters, "shout")
	assert.Equal(t, "HI", filters["shout"].(func(string) string)("hi"))
	assert.Equal(t, 1, logs.FilterMessage("Conflict in filters, filter is already set").Len())

	blocks := r.Blocks()
	assert.Empty(t, blocks["note"].Shortcuts)
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func TestExternalPlugin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "upper.sh", `#!/bin/sh
input=$(cat)
case "$input" in
  *'"hook":"page:before"'*) echo '{"content":"# Rewritten"}' ;;
  *'"hook":"config"'*) echo '{"config":{"title":"From plugin"}}' ;;
  *) echo '{}' ;;
esac
`)

	cfg := newConfig(t, map[string]any{
		"plugins": []any{"-search", "upper"},
		"pluginsConfig": map[string]any{
			"upper": map[string]any{
				"command": "sh upper.sh",
				"hooks":   []any{"config", "page:before", "finish"},
			},
		},
	})

	r := NewRegistry(nil)
	require.NoError(t, r.Load(cfg, Env{
		Host:   &fakeHost{name: "website"},
		Root:   dir,
		Book:   func() map[string]any { return map[string]any{"title": "Book"} },
		Config: cfg.Dump,
	}))
	require.Equal(t, []string{"upper"}, r.Names())

	ctx := context.Background()
	values, err := r.HookConfig(ctx, cfg.Dump())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "From plugin"}, values)

	content, err := r.HookPage(ctx, HookPageBefore, PageInput{Path: "README.md", Content: "# Hello"})
	require.NoError(t, err)
	assert.Equal(t, "# Rewritten", content)

	// the page hook is not handled by the command
	content, err = r.HookPage(ctx, HookPage, PageInput{Content: "<h1>Hello</h1>"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1>", content)

	require.NoError(t, r.HookLifecycle(ctx, HookFinish))
}

func TestExternalPluginFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "fail.sh", "#!/bin/sh\necho 'something broke' >&2\nexit 3\n")
	writeScript(t, dir, "garbage.sh", "#!/bin/sh\ncat > /dev/null\necho 'not json'\n")

	for _, tc := range []struct {
		script string
		want   string
	}{
		{"fail.sh", "something broke"},
		{"garbage.sh", "invalid JSON"},
	} {
		t.Run(tc.script, func(t *testing.T) {
			ext := NewExternal("broken", Env{
				Root:     dir,
				Settings: config.PluginSettings{Command: "sh " + tc.script},
				Logger:   zap.NewNop(),
			})
			_, err := ext.Hooks().PageBefore(context.Background(), PageInput{Content: "x"})
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindPlugin))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestExternalPluginTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "slow.sh", "#!/bin/sh\nexec sleep 5\n")

	ext := NewExternal("slow", Env{
		Root:     dir,
		Settings: config.PluginSettings{Command: "sh slow.sh"},
		Logger:   zap.NewNop(),
	})
	ext.timeout = 100 * time.Millisecond

	_, err := ext.Hooks().PageBefore(context.Background(), PageInput{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPlugin))
}

func TestUnmarshalResponse(t *testing.T) {
	resp, err := UnmarshalResponse(nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Content)
	assert.Nil(t, resp.Config)

	resp, err = UnmarshalResponse([]byte(`{"content":""}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Content)
	assert.Equal(t, "", *resp.Content)

	req, err := UnmarshalRequest([]byte(`{"hook":"page","page":{"path":"a.md","content":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, HookPage, req.Hook)
	assert.Equal(t, "a.md", req.Page.Path)
}
