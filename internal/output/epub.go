package output

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/summary"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	xhtmlMediaType  = "application/xhtml+xml"
)

// mediaTypes of the generated files that can't be sniffed from their content
var mediaTypes = map[string]string{
	".html":  xhtmlMediaType,
	".xhtml": xhtmlMediaType,
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".ncx":   "application/x-dtbncx+xml",
	".txt":   "text/plain",
}

type manifestItem struct {
	id         string
	href       string
	mediaType  string
	properties string
}

// epubBook is what goes into the package: the generated files and the reading order
type epubBook struct {
	id       string
	title    string
	language string
	author   string
	desc     string
	isbn     string
	cover    string
	files    []string
	spine    []string
	summary  *summary.Summary
	toURL    func(file string) string
	readFile func(name string) ([]byte, error)
}

// writeEPUB packages the generated files of o into index.epub
func writeEPUB(o *Output, cover string) error {
	files, err := o.sink.List()
	if err != nil {
		return err
	}
	var content []string
	for _, f := range files {
		if f == EPUBFile || f == SmallCover {
			continue
		}
		content = append(content, f)
	}

	cfg := o.book.Config()
	b := &epubBook{
		id:       uuid.NewString(),
		title:    cfg.Title(),
		language: o.book.Language(),
		author:   cfg.Author(),
		desc:     cfg.Description(),
		isbn:     cfg.ISBN(),
		cover:    cover,
		files:    content,
		summary:  o.book.Summary(),
		toURL:    func(file string) string { return o.OutputPath(file, "") },
		readFile: o.sink.ReadFile,
	}
	if b.language == "" {
		b.language = "en"
	}
	b.spine = b.readingOrder()

	data, err := b.build()
	if err != nil {
		return errs.Ebook("failed to package the ebook", err)
	}
	o.logger.Info("Ebook packaged")
	return o.WriteFile(EPUBFile, data)
}

// readingOrder is the summary page followed by the pages in summary order
func (b *epubBook) readingOrder() []string {
	exists := map[string]bool{}
	for _, f := range b.files {
		exists[f] = true
	}

	var spine []string
	seen := map[string]bool{}
	add := func(f string) {
		if exists[f] && !seen[f] {
			seen[f] = true
			spine = append(spine, f)
		}
	}
	add(SummaryFile)
	if b.summary != nil {
		for _, a := range b.summary.Flatten() {
			if a.Path != "" && !a.IsExternal() {
				add(b.toURL(a.Path))
			}
		}
	}
	return spine
}

// build writes the archive, then copies it without data descriptors: some readers
// reject entries whose sizes are only known after their data
func (b *epubBook) build() ([]byte, error) {
	tmp, err := os.CreateTemp("", "folio-*.epub")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if err := b.writeArchive(tmp); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return copyZipWithoutDataDescriptors(tmp.Name())
}

func (b *epubBook) writeArchive(out io.Writer) error {
	zw := zip.NewWriter(out)

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return fmt.Errorf("unable to write container: %w", err)
	}

	items := make([]manifestItem, 0, len(b.files))
	ids := map[string]string{}
	for i, f := range b.files {
		data, err := b.readFile(f)
		if err != nil {
			return err
		}
		if err := writeDataToZip(zw, path.Join(oebpsDir, f), data); err != nil {
			return fmt.Errorf("unable to write %s: %w", f, err)
		}
		item := manifestItem{
			id:        "item" + strconv.Itoa(i+1),
			href:      f,
			mediaType: mediaType(f, data),
		}
		if f == b.cover {
			item.id = "cover-image"
			item.properties = "cover-image"
		}
		ids[f] = item.id
		items = append(items, item)
	}

	if err := writeXMLToZip(zw, path.Join(oebpsDir, "nav.xhtml"), b.nav()); err != nil {
		return fmt.Errorf("unable to write nav: %w", err)
	}
	if err := writeXMLToZip(zw, path.Join(oebpsDir, "toc.ncx"), b.ncx()); err != nil {
		return fmt.Errorf("unable to write ncx: %w", err)
	}
	if err := writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), b.opf(items, ids)); err != nil {
		return fmt.Errorf("unable to write opf: %w", err)
	}
	return zw.Close()
}

func mediaType(name string, data []byte) string {
	if t, ok := mediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

func (b *epubBook) opf(items []manifestItem, ids map[string]string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("unique-identifier", "BookId")
	pkg.CreateAttr("version", "3.0")

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	metadata.CreateAttr("xmlns:opf", "http://www.idpf.org/2007/opf")

	identifier := metadata.CreateElement("dc:identifier")
	identifier.CreateAttr("id", "BookId")
	identifier.SetText("urn:uuid:" + b.id)

	metadata.CreateElement("dc:title").SetText(b.title)
	metadata.CreateElement("dc:language").SetText(b.language)
	if b.author != "" {
		metadata.CreateElement("dc:creator").SetText(b.author)
	}
	if b.desc != "" {
		metadata.CreateElement("dc:description").SetText(b.desc)
	}
	if b.isbn != "" {
		isbn := metadata.CreateElement("dc:identifier")
		isbn.CreateAttr("id", "isbn")
		isbn.SetText("urn:isbn:" + b.isbn)
	}
	modified := metadata.CreateElement("meta")
	modified.CreateAttr("property", "dcterms:modified")
	modified.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	if b.cover != "" {
		meta := metadata.CreateElement("meta")
		meta.CreateAttr("name", "cover")
		meta.CreateAttr("content", "cover-image")
	}

	manifest := pkg.CreateElement("manifest")
	nav := manifest.CreateElement("item")
	nav.CreateAttr("id", "nav")
	nav.CreateAttr("href", "nav.xhtml")
	nav.CreateAttr("media-type", xhtmlMediaType)
	nav.CreateAttr("properties", "nav")
	ncx := manifest.CreateElement("item")
	ncx.CreateAttr("id", "ncx")
	ncx.CreateAttr("href", "toc.ncx")
	ncx.CreateAttr("media-type", mediaTypes[".ncx"])
	for _, it := range items {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", it.id)
		item.CreateAttr("href", it.href)
		item.CreateAttr("media-type", it.mediaType)
		if it.properties != "" {
			item.CreateAttr("properties", it.properties)
		}
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")
	for _, f := range b.spine {
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", ids[f])
	}

	doc.Indent(2)
	return doc
}

// navPoint is an entry of the table of contents of the ebook
type navPoint struct {
	title    string
	href     string
	children []navPoint
}

func (b *epubBook) navPoints() []navPoint {
	if b.summary == nil {
		return nil
	}
	var build func(articles []*summary.Article) []navPoint
	build = func(articles []*summary.Article) []navPoint {
		var out []navPoint
		for _, a := range articles {
			if a.IsExternal() {
				continue
			}
			np := navPoint{title: a.Title, children: build(b.summary.Children(a))}
			if a.Path != "" {
				np.href = b.toURL(a.Path)
				if a.Anchor != "" {
					np.href += a.Anchor
				}
			}
			if np.href == "" && len(np.children) == 0 {
				continue
			}
			out = append(out, np)
		}
		return out
	}

	var points []navPoint
	for _, part := range b.summary.Parts() {
		points = append(points, build(b.summary.Articles(part))...)
	}
	return points
}

func (b *epubBook) nav() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective("DOCTYPE html")

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
	html.CreateAttr("lang", b.language)

	head := html.CreateElement("head")
	head.CreateElement("title").SetText(b.title)

	nav := html.CreateElement("body").CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateElement("h1").SetText(translate(b.language, "SUMMARY"))

	var list func(parent *etree.Element, points []navPoint)
	list = func(parent *etree.Element, points []navPoint) {
		ol := parent.CreateElement("ol")
		for _, np := range points {
			li := ol.CreateElement("li")
			if np.href != "" {
				a := li.CreateElement("a")
				a.CreateAttr("href", np.href)
				a.SetText(np.title)
			} else {
				li.CreateElement("span").SetText(np.title)
			}
			if len(np.children) > 0 {
				list(li, np.children)
			}
		}
	}
	points := b.navPoints()
	if len(points) == 0 {
		points = []navPoint{{title: b.title, href: firstOr(b.spine, "")}}
	}
	list(nav, points)

	doc.Indent(2)
	return doc
}

func (b *epubBook) ncx() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ncx")
	root.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	root.CreateAttr("version", "2005-1")

	head := root.CreateElement("head")
	uid := head.CreateElement("meta")
	uid.CreateAttr("name", "dtb:uid")
	uid.CreateAttr("content", "urn:uuid:"+b.id)

	root.CreateElement("docTitle").CreateElement("text").SetText(b.title)

	navMap := root.CreateElement("navMap")
	order := 0
	var add func(parent *etree.Element, points []navPoint)
	add = func(parent *etree.Element, points []navPoint) {
		for _, np := range points {
			href := np.href
			if href == "" {
				href = firstHref(np.children)
			}
			if href == "" {
				continue
			}
			order++
			point := parent.CreateElement("navPoint")
			point.CreateAttr("id", "navPoint-"+strconv.Itoa(order))
			point.CreateAttr("playOrder", strconv.Itoa(order))
			point.CreateElement("navLabel").CreateElement("text").SetText(np.title)
			point.CreateElement("content").CreateAttr("src", href)
			add(point, np.children)
		}
	}
	add(navMap, b.navPoints())

	doc.Indent(2)
	return doc
}

func firstHref(points []navPoint) string {
	for _, np := range points {
		if np.href != "" {
			return np.href
		}
		if h := firstHref(np.children); h != "" {
			return h
		}
	}
	return ""
}

func firstOr(list []string, def string) string {
	if len(list) > 0 {
		return list[0]
	}
	return def
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyZipWithoutDataDescriptors(from string) ([]byte, error) {
	r, err := fixzip.OpenReader(from)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	var out bytes.Buffer
	w := fixzip.NewWriter(&out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return nil, fmt.Errorf("unable to copy %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
