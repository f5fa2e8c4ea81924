// Package render draws composed pages onto A4 bitmaps and assembles them into
// a PDF document.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// ErrNoPages is returned when there is nothing to export.
var ErrNoPages = errors.New("no pages to export")

const (
	defaultJPEGQuality = 90
)

// --- Export Report Types ---

// Report describes what ended up in an exported document.
type Report struct {
	FileName   string       `json:"file_name,omitempty"`
	PageCount  int          `json:"page_count"`
	PhotoCount int          `json:"photo_count"`
	Pages      []ReportPage `json:"pages"`
	Warnings   []string     `json:"warnings"`
}

// ReportPage describes a single rendered page.
type ReportPage struct {
	PageNumber int           `json:"page_number"`
	Title      string        `json:"title,omitempty"`
	Columns    int           `json:"columns"`
	Rows       int           `json:"rows"`
	Photos     []ReportPhoto `json:"photos,omitempty"`
}

// Photo placement outcomes.
const (
	StatusDrawn   = "drawn"
	StatusDropped = "dropped" // beyond the grid capacity
	StatusFailed  = "failed"  // could not be decoded, cell left empty
)

// ReportPhoto describes the outcome for one photo of a page.
type ReportPhoto struct {
	URI      string `json:"uri"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Drawn counts the photos that made it onto the page.
func (p ReportPage) Drawn() int {
	n := 0
	for _, ph := range p.Photos {
		if ph.Status == StatusDrawn {
			n++
		}
	}
	return n
}

// --- Renderer ---

// Option configures a Renderer.
type Option func(*Renderer)

// WithJPEGQuality sets the quality of the per-page raster embedded in the PDF.
func WithJPEGQuality(q int) Option {
	return func(r *Renderer) {
		if q > 0 && q <= 100 {
			r.quality = q
		}
	}
}

// WithPageHook registers a callback invoked after each finished page.
func WithPageHook(fn func(page ReportPage)) Option {
	return func(r *Renderer) {
		r.onPage = fn
	}
}

type pageHookKey struct{}

// ContextWithPageHook returns a context whose renders report every finished
// page to fn, after the hook set with WithPageHook.
func ContextWithPageHook(ctx context.Context, fn func(page ReportPage)) context.Context {
	return context.WithValue(ctx, pageHookKey{}, fn)
}

// Renderer turns pages into a PDF. It holds no per-document state and may be
// shared between goroutines.
type Renderer struct {
	loader  ImageLoader
	quality int
	onPage  func(ReportPage)
}

// NewRenderer creates a renderer reading photos through loader.
func NewRenderer(loader ImageLoader, opts ...Option) *Renderer {
	r := &Renderer{
		loader:  loader,
		quality: defaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// frameSpec is the resolved frame drawing configuration.
type frameSpec struct {
	enabled bool
	width   float64
	color   color.NRGBA
}

func resolveFrame(cfg layout.Config) (frameSpec, error) {
	if !cfg.FrameEnabled {
		return frameSpec{}, nil
	}
	c, err := layout.ParseHexColor(cfg.FrameColorHex)
	if err != nil {
		return frameSpec{}, err
	}
	return frameSpec{
		enabled: true,
		width:   FrameStrokeWidth(cfg.FrameStyle),
		color:   frameColor(c),
	}, nil
}

// RenderPage draws a single page and returns its bitmap.
func (r *Renderer) RenderPage(ctx context.Context, page layout.Page, cfg layout.Config) (*image.RGBA, ReportPage, error) {
	frame, err := resolveFrame(cfg)
	if err != nil {
		return nil, ReportPage{}, err
	}
	ff, err := newFaces()
	if err != nil {
		return nil, ReportPage{}, err
	}
	defer ff.Close()

	sorted := layout.Sorted([]layout.Page{page})[0]
	img, rp, _ := r.drawPage(ctx, ff, sorted, frame)
	return img, rp, ctx.Err()
}

// Render writes one PDF page per input page, in pageIndex order, to w. Photos
// that fail to decode are skipped: their cell stays empty while frame and
// caption are still drawn, and the failure is listed in the report.
func (r *Renderer) Render(ctx context.Context, pages []layout.Page, cfg layout.Config, w io.Writer) (*Report, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}
	frame, err := resolveFrame(cfg)
	if err != nil {
		return nil, err
	}
	ff, err := newFaces()
	if err != nil {
		return nil, err
	}
	defer ff.Close()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: PageW, Ht: PageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("photo-pages", true)

	report := &Report{Warnings: []string{}}
	for _, page := range layout.Sorted(pages) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, rp, layoutWarnings := r.drawPage(ctx, ff, page, frame)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.addPage(pdf, img, rp.PageNumber); err != nil {
			return nil, err
		}

		report.Pages = append(report.Pages, rp)
		report.PhotoCount += rp.Drawn()
		report.Warnings = append(report.Warnings, pageWarnings(rp)...)
		for _, vw := range layoutWarnings {
			report.Warnings = append(report.Warnings, vw.String())
		}
		if r.onPage != nil {
			r.onPage(rp)
		}
		if fn, ok := ctx.Value(pageHookKey{}).(func(ReportPage)); ok {
			fn(rp)
		}
	}
	report.PageCount = len(report.Pages)

	if err := pdf.Output(w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return report, nil
}

// addPage embeds the page bitmap as a full-page JPEG.
func (r *Renderer) addPage(pdf *gofpdf.Fpdf, img *image.RGBA, pageNumber int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return fmt.Errorf("%w: encode page %d: %w", ErrWrite, pageNumber, err)
	}
	name := fmt.Sprintf("page-%d", pageNumber)
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, &buf)
	pdf.AddPage()
	pdf.ImageOptions(name, 0, 0, PageW, PageH, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: page %d: %w", ErrWrite, pageNumber, err)
	}
	return nil
}

// drawPage draws header, photos, frames and captions. page.Photos must be in
// position order.
func (r *Renderer) drawPage(ctx context.Context, ff *faces, page layout.Page, frame frameSpec) (*image.RGBA, ReportPage, []ValidationWarning) {
	geom := ComputeGeometry(page)
	cells := LayoutCells(page, geom)
	warnings := validatePage(ff, page, geom, cells)
	c := newCanvas()

	rp := ReportPage{
		PageNumber: page.PageIndex + 1,
		Title:      page.Title,
		Columns:    geom.Columns,
		Rows:       geom.Rows,
		Photos:     make([]ReportPhoto, len(page.Photos)),
	}
	for k, ph := range page.Photos {
		rp.Photos[k] = ReportPhoto{URI: ph.URI, Position: ph.Position, Status: StatusDropped}
	}

	if hasText(page.Title) {
		x, y := HeaderBaseline()
		c.drawText(ff.header, page.Title, x, y)
	}

	for _, cell := range cells {
		if ctx.Err() != nil {
			break
		}
		photo := page.Photos[cell.Index]
		r.drawCell(ctx, c, cell, photo, &rp.Photos[cell.Index], rp.PageNumber)

		if frame.enabled {
			c.strokeRect(cell.Image, frame.width, frame.color)
		}
		if cell.HasCaption {
			c.drawText(ff.caption, photo.Caption, cell.CaptionX, cell.CaptionBaseline)
		}
	}
	return c.img, rp, warnings
}

// drawCell loads and draws one photo. The decoded bitmap does not outlive the call.
func (r *Renderer) drawCell(ctx context.Context, c *canvas, cell CellLayout, photo layout.Photo, out *ReportPhoto, pageNumber int) {
	target := cell.Image.Pixels()
	img, err := r.loader.Load(ctx, photo.URI, image.Pt(target.Dx(), target.Dy()))
	if err == nil && img == nil {
		err = fmt.Errorf("%w: loader returned no image", ErrDecode)
	}
	if err != nil {
		log.Printf("WARNING: page %d: skipping %s: %v", pageNumber, sanitize(photo.URI), err)
		out.Status = StatusFailed
		out.Error = err.Error()
		return
	}
	c.drawCover(img, cell.Image)
	out.Status = StatusDrawn
}

func pageWarnings(rp ReportPage) []string {
	var warnings []string
	for _, ph := range rp.Photos {
		switch ph.Status {
		case StatusDropped:
			warnings = append(warnings, fmt.Sprintf("page %d: photo %s at position %d exceeds the %dx%d grid and was not drawn",
				rp.PageNumber, ph.URI, ph.Position, rp.Columns, rp.Rows))
		case StatusFailed:
			warnings = append(warnings, fmt.Sprintf("page %d: photo %s could not be loaded: %s", rp.PageNumber, ph.URI, ph.Error))
		}
	}
	return warnings
}

func sanitize(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// ExportFileName returns the document name for an export started at t.
func ExportFileName(t time.Time) string {
	return "Fotoseiten_" + t.Format("2006-01-02_1504") + ".pdf"
}
