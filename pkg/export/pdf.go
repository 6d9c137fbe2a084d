package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/charmap"
)

// US Letter in points.
const (
	pageWidth  = 612
	pageHeight = 792
	margin     = 56
)

// Reserved object numbers. Page objects follow from firstPageObj.
const (
	catalogObj   = 1
	pagesObj     = 2
	regularFont  = 3
	boldFont     = 4
	firstPageObj = 5
)

// pdfWriter emits a PDF 1.4 file one object at a time. The page tree is
// written last, after every page has been streamed, so pages never have to
// be held in memory together.
type pdfWriter struct {
	w       io.Writer
	offset  int64
	xref    map[int]int64
	nextObj int
	pages   []int
}

func newPDFWriter(w io.Writer) *pdfWriter {
	return &pdfWriter{
		w:       w,
		xref:    make(map[int]int64),
		nextObj: firstPageObj,
	}
}

func (p *pdfWriter) write(b []byte) error {
	n, err := p.w.Write(b)
	p.offset += int64(n)
	return err
}

func (p *pdfWriter) object(num int, body []byte) error {
	p.xref[num] = p.offset
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", num)
	buf.Write(body)
	buf.WriteString("\nendobj\n")
	return p.write(buf.Bytes())
}

func (p *pdfWriter) header() error {
	// the binary comment marks the file as 8-bit for transfer tools
	if err := p.write([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")); err != nil {
		return err
	}
	if err := p.object(catalogObj, []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))); err != nil {
		return err
	}
	if err := p.object(regularFont, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")); err != nil {
		return err
	}
	return p.object(boldFont, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>"))
}

// page writes one content stream and the page object that references it.
func (p *pdfWriter) page(content []byte) error {
	contentObj := p.nextObj
	pageObj := p.nextObj + 1
	p.nextObj += 2

	var stream bytes.Buffer
	fmt.Fprintf(&stream, "<< /Length %d >>\nstream\n", len(content))
	stream.Write(content)
	stream.WriteString("\nendstream")
	if err := p.object(contentObj, stream.Bytes()); err != nil {
		return err
	}

	body := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %d %d] "+
		"/Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> /Contents %d 0 R >>",
		pagesObj, pageWidth, pageHeight, regularFont, boldFont, contentObj)
	if err := p.object(pageObj, []byte(body)); err != nil {
		return err
	}
	p.pages = append(p.pages, pageObj)
	return nil
}

// finish writes the page tree, the cross-reference table and the trailer.
func (p *pdfWriter) finish() error {
	var kids bytes.Buffer
	for i, num := range p.pages {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", num)
	}
	if err := p.object(pagesObj, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(p.pages)))); err != nil {
		return err
	}

	size := p.nextObj
	xrefAt := p.offset
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", p.xref[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogObj, xrefAt)
	return p.write(buf.Bytes())
}

// text encodes s as a PDF literal string in WinAnsi. Runes outside the
// code page print as '?'.
func text(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '(')
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		switch b {
		case '(', ')', '\\':
			out = append(out, '\\', b)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, b)
		}
	}
	return append(out, ')')
}

// contentBuilder accumulates the drawing operators of one page.
type contentBuilder struct {
	buf bytes.Buffer
}

func (c *contentBuilder) line(font string, size float64, x, y float64, s string) {
	fmt.Fprintf(&c.buf, "BT /%s %s Tf %s %s Td ", font, num(size), num(x), num(y))
	c.buf.Write(text(s))
	c.buf.WriteString(" Tj ET\n")
}

func (c *contentBuilder) rule(x1, y, x2 float64) {
	fmt.Fprintf(&c.buf, "0.75 w %s %s m %s %s l S\n", num(x1), num(y), num(x2), num(y))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
