package output

import (
	"bytes"
	"context"
	"path"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/page"
)

const (
	// DefaultCover is the cover image looked up in the book
	DefaultCover = "cover.jpg"
	// SmallCover is the thumbnail generated from the cover
	SmallCover = "cover_small.jpg"
	// SummaryFile is the table of contents page of an ebook
	SummaryFile = "SUMMARY.html"
	// EPUBFile is the packaged ebook
	EPUBFile = "index.epub"

	smallCoverWidth  = 200
	smallCoverHeight = 262
)

// ebook renders pages as a website without directory indexes, with local images,
// and packages the result as an EPUB
type ebook struct {
	website
}

func (e *ebook) Name() string { return Ebook }

func (e *ebook) Prepare(_ context.Context, o *Output) error {
	return copyThemeAssets(o, Ebook)
}

func (e *ebook) OnPage(ctx context.Context, o *Output, p *page.Page) error {
	return renderPage(ctx, o, p, "ebook/page.html", o.OutputPath(p.Path, ""))
}

// Finish writes the summary page, the cover thumbnail and the EPUB of each book
func (e *ebook) Finish(ctx context.Context, o *Output) error {
	if o.book.IsMultilingual() {
		return nil
	}

	if err := renderSummary(o); err != nil {
		return err
	}
	cover, err := writeSmallCover(o)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeEPUB(o, cover)
}

func renderSummary(o *Output) error {
	layout := "ebook/summary.html"
	data := o.bookContext(map[string]any{
		"summary":  o.book.Summary().Context(),
		"glossary": o.book.Glossary().Context(),
		"config":   o.book.Config().Dump(),
		"gitbook":  page.GeneratorContext(),
	}, layout)

	out, err := o.templates.Render(layout, data, o.helpers(nil))
	if err != nil {
		return err
	}
	return o.WriteFile(SummaryFile, []byte(out))
}

// locateCover returns the cover of the book or of the book it is a language of, in the
// output of that book: "cover.jpg" or "../cover.jpg"
func locateCover(o *Output) (string, bool) {
	name := o.book.Config().GetString("cover", DefaultCover)
	if o.sink.Exists(name) {
		return name, true
	}
	if o.parent != nil {
		if cover, ok := locateCover(o.parent); ok {
			return path.Join("..", cover), true
		}
	}
	return "", false
}

// writeSmallCover writes the cover thumbnail and returns the cover in the output of the
// book, copied from the parent book when needed. It returns "" without a cover.
func writeSmallCover(o *Output) (string, error) {
	cover, ok := locateCover(o)
	if !ok {
		o.logger.Debug("No cover image")
		return "", nil
	}

	var data []byte
	var err error
	if path.Dir(cover) == ".." && o.parent != nil {
		data, err = o.parent.sink.ReadFile(path.Base(cover))
		if err == nil {
			cover = path.Base(cover)
			err = o.WriteFile(cover, data)
		}
	} else {
		data, err = o.sink.ReadFile(cover)
	}
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		o.logger.Warn("Cover image can't be decoded", zap.String("file", cover), zap.Error(err))
		return cover, nil
	}
	small := imaging.Fit(img, smallCoverWidth, smallCoverHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", errs.Ebook("failed to encode the cover thumbnail", err)
	}
	return cover, o.WriteFile(SmallCover, buf.Bytes())
}
