package output

import (
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/vfs"
)

const (
	// LayoutsDir holds the layouts a book overrides the theme with
	LayoutsDir = "_layouts"

	themeTemplates = "frontend/templates"
	themeAssets    = "frontend/assets"
	includesDir    = "includes"
)

// TemplateSource resolves layouts from the book "_layouts" folder, then from the theme
type TemplateSource struct {
	book     fs.FS
	bookRoot string
	theme    fs.FS
	cache    map[string]string
}

// NewTemplateSource reads layouts from bookRoot/_layouts in book and from the theme, whose
// files live under "frontend/". Without a theme the "frontend" folder on disk is used.
func NewTemplateSource(book fs.FS, bookRoot string, theme fs.FS) *TemplateSource {
	if theme == nil {
		if info, err := os.Stat(themeTemplates); err == nil && info.IsDir() {
			theme = os.DirFS(".")
		}
	}
	return &TemplateSource{
		book:     book,
		bookRoot: bookRoot,
		theme:    theme,
		cache:    map[string]string{},
	}
}

// Theme returns the theme files
func (t *TemplateSource) Theme() fs.FS { return t.theme }

// Load returns the source of the layout name, e.g. "website/page.html"
func (t *TemplateSource) Load(name string) (string, error) {
	if src, ok := t.cache[name]; ok {
		return src, nil
	}
	if t.book != nil {
		if data, err := fs.ReadFile(t.book, path.Join(t.bookRoot, LayoutsDir, name)); err == nil {
			t.cache[name] = string(data)
			return string(data), nil
		}
	}
	if t.theme != nil {
		if data, err := fs.ReadFile(t.theme, path.Join(themeTemplates, name)); err == nil {
			t.cache[name] = string(data)
			return string(data), nil
		}
	}
	return "", errs.Template(name, fs.ErrNotExist)
}

// partials returns the includes of a format by name; the book overrides the theme
func (t *TemplateSource) partials(format string) map[string]string {
	out := map[string]string{}
	add := func(fsys fs.FS, dir string) {
		files, err := vfs.ListFiles(fsys, dir)
		if err != nil {
			return
		}
		for _, f := range files {
			data, err := fs.ReadFile(fsys, path.Join(dir, f))
			if err != nil {
				continue
			}
			out[strings.TrimSuffix(f, path.Ext(f))] = string(data)
		}
	}
	if t.theme != nil {
		add(t.theme, path.Join(themeTemplates, format, includesDir))
	}
	if t.book != nil {
		add(t.book, path.Join(t.bookRoot, LayoutsDir, format, includesDir))
	}
	return out
}

// Render renders the layout name with data. helpers are bound to this render only.
func (t *TemplateSource) Render(name string, data map[string]any, helpers map[string]any) (out string, err error) {
	src, err := t.Load(name)
	if err != nil {
		return "", err
	}
	tpl, err := raymond.Parse(src)
	if err != nil {
		return "", errs.Template(name, err)
	}

	format, _, _ := strings.Cut(name, "/")
	for pname, psrc := range t.partials(format) {
		tpl.RegisterPartial(pname, psrc)
	}
	tpl.RegisterHelpers(helpers)

	// raymond panics on unknown partials and bad helper calls
	defer func() {
		if r := recover(); r != nil {
			out, err = "", errs.Template(name, panicError(r))
		}
	}()
	out, err = tpl.Exec(data)
	if err != nil {
		return "", errs.Template(name, err)
	}
	return out, nil
}

// Assets lists the theme assets of a format, relative to their folder
func (t *TemplateSource) Assets(format string) ([]string, string, error) {
	dir := path.Join(themeAssets, format)
	if t.theme == nil || !vfs.Exists(t.theme, dir) {
		return nil, dir, nil
	}
	files, err := vfs.ListAllFiles(t.theme, dir, nil)
	if err != nil {
		return nil, dir, errs.Output(dir, "failed to list theme assets", err)
	}
	return files, dir, nil
}
