package location

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/geocine/folio/internal/errs"
)

// IsExternal reports whether href points outside the book (has a scheme)
func IsExternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme != "" && len(u.Scheme) > 1
}

// IsDataURI reports whether href is an inline data URI
func IsDataURI(href string) bool {
	return strings.HasPrefix(strings.TrimSpace(href), "data:")
}

// IsRelative reports whether href is resolved against the book
func IsRelative(href string) bool {
	return !IsExternal(href)
}

// IsAnchor reports whether href only targets a fragment of the current page
func IsAnchor(href string) bool {
	if IsExternal(href) {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return strings.HasPrefix(href, "#")
	}
	return u.Path == "" && u.Host == "" && u.Fragment != ""
}

// Normalize cleans a path and forces forward slashes
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return "."
	}
	trailing := strings.HasSuffix(p, "/") && p != "/"
	p = path.Clean(p)
	if trailing && p != "/" && p != "." {
		p += "/"
	}
	return p
}

// ToAbsolute resolves href from directory dir, then expresses it relative to outdir.
// A leading slash in href means the book root. External links and data URIs are returned untouched.
func ToAbsolute(href, dir, outdir string) string {
	if IsExternal(href) || IsDataURI(href) {
		return href
	}

	href = Normalize(href)
	dir = Normalize(dir)
	outdir = Normalize(outdir)

	var inRoot string
	if strings.HasPrefix(href, "/") {
		inRoot = Normalize(strings.TrimPrefix(href, "/"))
	} else {
		inRoot = Normalize(path.Join(dir, href))
	}

	return Normalize(rel(outdir, inRoot))
}

// Relative returns file relative to dir, keeping a trailing slash for directories
func Relative(dir, file string) string {
	isDir := strings.HasSuffix(file, "/")
	out := Normalize(rel(Normalize(dir), Normalize(file)))
	if isDir && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out
}

// SetExtension replaces the extension of file
func SetExtension(file, ext string) string {
	dir := path.Dir(file)
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	return path.Join(dir, base+ext)
}

// AreIdenticalPaths compares two locations after normalization
func AreIdenticalPaths(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// PathToRoot returns the "../" prefix leading from file back to the root
// E.g., "some/relative/path.html" -> "../../"
func PathToRoot(file string) string {
	dir := path.Dir(Normalize(file))
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

// IsInRoot reports whether file lies inside root; both are slash paths in the same tree
func IsInRoot(root, file string) bool {
	root = Normalize(root)
	file = Normalize(file)
	if file == ".." || strings.HasPrefix(file, "../") {
		return false
	}
	if root == "." {
		return true
	}
	if file == strings.TrimSuffix(root, "/") {
		return true
	}
	return strings.HasPrefix(file, strings.TrimSuffix(root, "/")+"/")
}

// ResolveInRoot joins parts onto root and fails with an out of scope error when the
// result escapes it. A part starting with "/" restarts from root.
func ResolveInRoot(root string, parts ...string) (string, error) {
	input := ""
	for _, p := range parts {
		p = strings.ReplaceAll(p, "\\", "/")
		switch {
		case strings.HasPrefix(p, "/"):
			input = p[1:]
		case input == "":
			input = p
		default:
			input = path.Join(input, p)
		}
	}

	result := Normalize(path.Join(Normalize(root), input))
	if !IsInRoot(root, result) {
		return "", errs.OutOfScope(result, root)
	}
	return strings.TrimSuffix(result, "/"), nil
}

func rel(base, target string) string {
	if base == target {
		return "."
	}
	r, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(r)
}
