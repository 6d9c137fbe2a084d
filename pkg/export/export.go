// Package export renders a media record and its reviews as a PDF document.
//
// Pages are written to an io.Pipe as soon as they are laid out, so the
// caller can forward bytes to its destination while later pages are still
// being generated. The output carries no timestamps or random identifiers:
// identical inputs yield identical bytes.
package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/logging"
)

// DefaultReviewsPerPage caps how many reviews share a page.
const DefaultReviewsPerPage = 12

const (
	titleSize   = 20
	headingSize = 14
	bodySize    = 11
	smallSize   = 9
	lineGap     = 4
	// Helvetica averages about half an em per glyph.
	avgGlyphWidth = 0.5
)

// StreamError is returned from Read when generation fails part way through
// the document.
type StreamError struct {
	Page int
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("export: page %d: %v", e.Page, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Renderer lays out media documents.
type Renderer struct {
	reviewsPerPage int
}

// NewRenderer returns a Renderer. A non-positive reviewsPerPage selects
// DefaultReviewsPerPage.
func NewRenderer(reviewsPerPage int) *Renderer {
	if reviewsPerPage <= 0 {
		reviewsPerPage = DefaultReviewsPerPage
	}
	return &Renderer{reviewsPerPage: reviewsPerPage}
}

// Render starts generating the document and returns its byte stream. The
// stream must be closed; closing it early stops generation. Cancelling ctx
// ends the stream with a *StreamError wrapping the context error.
func (r *Renderer) Render(ctx context.Context, media catalog.Media, reviews []catalog.Review) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		if err := r.write(ctx, pw, media, reviews); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("media_id", media.ImdbID).Msg("pdf export aborted")
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()
	return pr
}

// RenderTo renders the whole document into w synchronously.
func (r *Renderer) RenderTo(ctx context.Context, w io.Writer, media catalog.Media, reviews []catalog.Review) error {
	return r.write(ctx, w, media, reviews)
}

func (r *Renderer) write(ctx context.Context, w io.Writer, media catalog.Media, reviews []catalog.Review) error {
	pdf := newPDFWriter(w)
	l := &layout{ctx: ctx, r: r, pdf: pdf}

	if err := ctx.Err(); err != nil {
		return &StreamError{Page: 0, Err: err}
	}
	if err := pdf.header(); err != nil {
		return &StreamError{Page: 0, Err: err}
	}

	l.newPage()
	l.mediaHeader(media)
	l.heading(fmt.Sprintf("Reviews (%d)", len(reviews)))
	if len(reviews) == 0 {
		l.text("F1", bodySize, "No reviews yet.")
	}

	onPage := 0
	for _, rev := range reviews {
		if l.err != nil {
			return l.err
		}
		// keep a review on one page when it fits on a fresh one
		if onPage == r.reviewsPerPage || (l.y-l.reviewHeight(rev) < margin && !l.blank()) {
			l.breakPage()
			onPage = 0
		}
		start := l.page
		l.review(rev)
		if l.page != start {
			// the review continued onto a new page
			onPage = 0
		}
		onPage++
	}

	if l.err != nil {
		return l.err
	}
	if err := l.flush(); err != nil {
		return err
	}
	if err := pdf.finish(); err != nil {
		return &StreamError{Page: l.page, Err: err}
	}
	return nil
}

// layout tracks the cursor on the page being built. The first failure to
// emit a page is kept in err and stops further drawing.
type layout struct {
	ctx  context.Context
	r    *Renderer
	pdf  *pdfWriter
	cur  *contentBuilder
	page int
	y    float64
	err  error
}

func (l *layout) newPage() {
	l.page++
	l.cur = &contentBuilder{}
	l.y = pageHeight - margin
}

// blank reports whether nothing has been drawn on the current page yet.
func (l *layout) blank() bool {
	return l.y == pageHeight-margin
}

// flush checks for cancellation and emits the current page.
func (l *layout) flush() error {
	if err := l.ctx.Err(); err != nil {
		return &StreamError{Page: l.page, Err: err}
	}
	l.cur.line("F1", smallSize, margin, margin/2, "Page "+strconv.Itoa(l.page))
	if err := l.pdf.page(l.cur.buf.Bytes()); err != nil {
		return &StreamError{Page: l.page, Err: err}
	}
	return nil
}

// breakPage emits the current page and starts the next one.
func (l *layout) breakPage() {
	if l.err != nil {
		return
	}
	if err := l.flush(); err != nil {
		l.err = err
		return
	}
	l.newPage()
}

// reserve starts a new page when height no longer fits above the bottom
// margin. A blank page always takes the content.
func (l *layout) reserve(height float64) {
	if l.y-height < margin && !l.blank() {
		l.breakPage()
	}
}

func (l *layout) text(font string, size float64, s string) {
	l.reserve(size)
	if l.err != nil {
		return
	}
	l.y -= size
	l.cur.line(font, size, margin, l.y, s)
	l.y -= lineGap
}

func (l *layout) wrapped(font string, size float64, s string) {
	for _, line := range wrap(s, charsPerLine(size)) {
		l.text(font, size, line)
	}
}

func (l *layout) heading(s string) {
	l.reserve(headingSize*2 + lineGap*3 + bodySize)
	if l.err != nil {
		return
	}
	l.y -= headingSize
	l.text("F2", headingSize, s)
	l.cur.rule(margin, l.y, pageWidth-margin)
	l.y -= lineGap * 2
}

func (l *layout) mediaHeader(m catalog.Media) {
	l.wrapped("F2", titleSize, orDash(m.Title))
	if !l.blank() {
		l.y -= lineGap
	}
	l.text("F1", bodySize, "Year: "+orDash(m.Year))
	l.text("F1", bodySize, "Type: "+orDash(m.Type))
	l.text("F1", bodySize, "IMDb ID: "+orDash(m.ImdbID))
	l.wrapped("F1", bodySize, "Poster: "+orDash(m.Poster))
}

func (l *layout) review(rev catalog.Review) {
	l.text("F2", bodySize, reviewTitle(rev))
	l.wrapped("F1", bodySize, rev.Comment)
	if !l.blank() {
		l.y -= lineGap * 2
	}
}

func (l *layout) reviewHeight(rev catalog.Review) float64 {
	lines := 1 + len(wrap(rev.Comment, charsPerLine(bodySize)))
	return float64(lines)*(bodySize+lineGap) + lineGap*2
}

func reviewTitle(rev catalog.Review) string {
	rate := strconv.FormatFloat(rev.Rate, 'f', -1, 64)
	if rev.CreatedAt.IsZero() {
		return "Rate: " + rate
	}
	return "Rate: " + rate + "  |  " + rev.CreatedAt.UTC().Format("2006-01-02")
}

func charsPerLine(size float64) int {
	return int((pageWidth - 2*margin) / (size * avgGlyphWidth))
}

// wrap breaks s into lines of at most width runes on word boundaries.
// Words longer than width are split.
func wrap(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var cur []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(cur) > 0 {
					lines = append(lines, string(cur))
					cur = nil
				}
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(cur) == 0:
				cur = w
			case len(cur)+1+len(w) <= width:
				cur = append(append(cur, ' '), w...)
			default:
				lines = append(lines, string(cur))
				cur = w
			}
		}
		lines = append(lines, string(cur))
	}
	return lines
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
