// Package export renders a deck as a printable study sheet.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/andrewpaige1/tarjetas-api/logger"
)

// 11x8.5in at 300 DPI.
const (
	Width        = 3300
	Height       = 2550
	Columns      = 4
	Rows         = 2
	CardsPerPage = Columns * Rows

	margin       = 150.0
	headerHeight = 260.0
	footerHeight = 160.0
	cellPad      = 36.0
	imageHeight  = 520.0

	maxImageBytes = 10 << 20
)

var ErrTooManyCards = fmt.Errorf("a sheet holds at most %d cards", CardsPerPage)

type Card struct {
	Spanish  string
	English  string
	ImageURL string
}

// Pages splits cards into sheet-sized chunks. An empty deck still has one page.
func Pages(cards []Card) [][]Card {
	if len(cards) == 0 {
		return [][]Card{nil}
	}
	pages := make([][]Card, 0, (len(cards)+CardsPerPage-1)/CardsPerPage)
	for start := 0; start < len(cards); start += CardsPerPage {
		end := min(start+CardsPerPage, len(cards))
		pages = append(pages, cards[start:end])
	}
	return pages
}

type Renderer struct {
	client    *http.Client
	imageBase *url.URL
	watermark string
	regular   *truetype.Font
	bold      *truetype.Font
	log       *logger.Logger
}

type Option func(*Renderer)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Renderer) { r.client = c }
}

// WithImageBase resolves relative image urls such as the sample deck images.
func WithImageBase(base string) Option {
	return func(r *Renderer) {
		if u, err := url.Parse(strings.TrimSpace(base)); err == nil && u.Scheme != "" {
			r.imageBase = u
		}
	}
}

func WithWatermark(text string) Option {
	return func(r *Renderer) { r.watermark = text }
}

func NewRenderer(log *logger.Logger, opts ...Option) (*Renderer, error) {
	if log == nil {
		log = logger.Nop()
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	r := &Renderer{
		client:  &http.Client{Timeout: 15 * time.Second},
		regular: regular,
		bold:    bold,
		log:     log.With("service", "ExportRenderer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render draws one sheet and returns it JPEG encoded.
func (r *Renderer) Render(ctx context.Context, title string, cards []Card) ([]byte, error) {
	if len(cards) > CardsPerPage {
		return nil, ErrTooManyCards
	}

	dc := gg.NewContext(Width, Height)
	dc.SetColor(color.White)
	dc.Clear()

	r.drawHeader(dc, title)

	gridTop := margin + headerHeight
	cellW := (Width - 2*margin) / Columns
	cellH := (Height - gridTop - footerHeight - margin/2) / Rows
	for i, card := range cards {
		x := margin + float64(i%Columns)*cellW
		y := gridTop + float64(i/Columns)*cellH
		r.drawCard(ctx, dc, card, x, y, cellW, cellH)
	}

	if r.watermark != "" {
		dc.SetFontFace(face(r.regular, 44))
		dc.SetColor(color.NRGBA{R: 150, G: 150, B: 150, A: 255})
		dc.DrawStringAnchored(r.watermark, Width-margin, Height-footerHeight/2, 1, 0.5)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawHeader(dc *gg.Context, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Tarjetas"
	}
	dc.SetColor(color.NRGBA{R: 33, G: 37, B: 41, A: 255})
	fit(dc, r.bold, 120, title, Width-2*margin)
	dc.DrawStringAnchored(title, Width/2, margin+headerHeight/2-20, 0.5, 0.5)

	dc.SetLineWidth(4)
	dc.DrawLine(margin, margin+headerHeight-40, Width-margin, margin+headerHeight-40)
	dc.Stroke()
}

func (r *Renderer) drawCard(ctx context.Context, dc *gg.Context, card Card, x, y, w, h float64) {
	x, y = x+cellPad/2, y+cellPad/2
	w, h = w-cellPad, h-cellPad

	dc.SetColor(color.NRGBA{R: 248, G: 249, B: 250, A: 255})
	dc.DrawRoundedRectangle(x, y, w, h, 28)
	dc.FillPreserve()
	dc.SetColor(color.NRGBA{R: 173, G: 181, B: 189, A: 255})
	dc.SetLineWidth(5)
	dc.Stroke()

	inner := w - 2*cellPad
	textTop := y + cellPad + imageHeight/3
	if card.ImageURL != "" {
		img, err := r.fetchImage(ctx, card.ImageURL)
		if err != nil {
			r.log.Warn("Render: image skipped", "url", card.ImageURL, "error", err)
		} else {
			scaled := scaleToFit(img, int(inner), int(imageHeight))
			b := scaled.Bounds()
			ix := x + (w-float64(b.Dx()))/2
			iy := y + cellPad + (imageHeight-float64(b.Dy()))/2
			dc.DrawImage(scaled, int(ix), int(iy))
			textTop = y + cellPad + imageHeight
		}
	}

	dc.SetColor(color.NRGBA{R: 33, G: 37, B: 41, A: 255})
	fit(dc, r.bold, 96, card.Spanish, inner)
	dc.DrawStringAnchored(card.Spanish, x+w/2, textTop+110, 0.5, 0.5)

	dc.SetColor(color.NRGBA{R: 108, G: 117, B: 125, A: 255})
	fit(dc, r.regular, 64, card.English, inner)
	dc.DrawStringAnchored(card.English, x+w/2, textTop+220, 0.5, 0.5)
}

func (r *Renderer) resolve(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if r.imageBase == nil {
		return "", errors.New("relative image url without a base")
	}
	return r.imageBase.ResolveReference(u).String(), nil
}

func (r *Renderer) fetchImage(ctx context.Context, raw string) (image.Image, error) {
	target, err := r.resolve(raw)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func scaleToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	ratio := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*ratio))
	h := max(1, int(float64(b.Dy())*ratio))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// fit sets the largest face not above size that keeps text within maxW.
func fit(dc *gg.Context, f *truetype.Font, size float64, text string, maxW float64) {
	for {
		dc.SetFontFace(face(f, size))
		if w, _ := dc.MeasureString(text); w <= maxW || size <= 24 {
			return
		}
		size *= 0.9
	}
}
