package output

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"

	"github.com/geocine/folio/internal/errs"
)

const (
	// AssetsDir receives the downloaded and converted images
	AssetsDir = "assets"

	// DownloadTimeout bounds the download of one remote image
	DownloadTimeout = 30 * time.Second

	defaultSVGSize = 1024
	maxSVGSize     = 4096
)

// AssetInliner makes the images of a page local files: remote images are downloaded and
// SVG images are converted to PNG
type AssetInliner struct {
	sink   FileSink
	client *http.Client
	logger *zap.Logger

	downloads map[string]string
	files     map[string]string
	buffers   map[string]string
}

// NewAssetInliner writes the assets it creates into sink
func NewAssetInliner(sink FileSink, logger *zap.Logger) *AssetInliner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetInliner{
		sink:      sink,
		client:    &http.Client{Timeout: DownloadTimeout},
		logger:    logger,
		downloads: map[string]string{},
		files:     map[string]string{},
		buffers:   map[string]string{},
	}
}

func hashName(data []byte) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE(data)), 16)
}

// Download fetches a remote image once and returns the file it was saved to
func (a *AssetInliner) Download(ctx context.Context, src string) (string, error) {
	if file, ok := a.downloads[src]; ok {
		return file, nil
	}

	a.logger.Debug("Downloading image", zap.String("url", src))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", errs.Output(src, "invalid image url", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", errs.Output(src, "failed to download image", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errs.Output(src, "failed to download image", fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Output(src, "failed to download image", err)
	}

	ext := ""
	if u, err := url.Parse(src); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" {
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			ext = "." + kind.Extension
		}
	}

	file := uniqueName(a.sink, path.Join(AssetsDir, hashName([]byte(src))+ext))
	if err := a.sink.WriteFile(file, data); err != nil {
		return "", err
	}
	a.downloads[src] = file
	return file, nil
}

// ConvertSVGFile converts the svg file name of the sink to PNG, once
func (a *AssetInliner) ConvertSVGFile(name string) (string, error) {
	if file, ok := a.files[name]; ok {
		return file, nil
	}
	data, err := a.sink.ReadFile(name)
	if err != nil {
		return "", err
	}
	file, err := a.writePNG(hashName([]byte(name)), data)
	if err != nil {
		return "", errs.Output(name, "failed to convert svg", err)
	}
	a.files[name] = file
	return file, nil
}

// ConvertSVGBuffer converts an inline svg to PNG, once per distinct content
func (a *AssetInliner) ConvertSVGBuffer(svg string) (string, error) {
	hash := hashName([]byte(svg))
	if file, ok := a.buffers[hash]; ok {
		return file, nil
	}
	file, err := a.writePNG(hash, []byte(svg))
	if err != nil {
		return "", errs.Output("", "failed to convert inline svg", err)
	}
	a.buffers[hash] = file
	return file, nil
}

func (a *AssetInliner) writePNG(hash string, svg []byte) (string, error) {
	img, err := rasterizeSVG(svg)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	file := uniqueName(a.sink, path.Join(AssetsDir, hash+".png"))
	if err := a.sink.WriteFile(file, buf.Bytes()); err != nil {
		return "", err
	}
	return file, nil
}

func rasterizeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}
	w, h = min(w, maxSVGSize), min(h, maxSVGSize)

	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
