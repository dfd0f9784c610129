// Package export provides the file encoders, artifact storage, signed
// download links and background dispatch behind table exports.
package export

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// RegisterDefaults registers the built-in csv, xlsx, pdf and image
// encoders.
func RegisterDefaults(e *datatable.Exporter) {
	e.RegisterEncoder("csv", CSV{})
	e.RegisterEncoder("xlsx", XLSX{})
	e.RegisterEncoder("pdf", PDF{})
	e.RegisterEncoder("image", PNG{})
}

func headerRow(cols []*core.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

func textRow(cols []*core.Column, record map[string]any) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = core.ToString(record[c.Key])
	}
	return out
}

// CSV writes RFC 4180 comma-separated values with a header row.
type CSV struct{}

func (CSV) ContentType() string { return "text/csv" }
func (CSV) Extension() string   { return "csv" }

func (CSV) Encode(w io.Writer, cols []*core.Column, records []map[string]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow(cols)); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(textRow(cols, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX writes a single-sheet workbook. Numbers and booleans keep their
// cell type.
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSX) Extension() string { return "xlsx" }

func (XLSX) Encode(w io.Writer, cols []*core.Column, records []map[string]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return fmt.Errorf("failed to create sheet writer: %w", err)
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range records {
		cells := make([]any, len(cols))
		for j, c := range cols {
			cells[j] = sheetValue(r[c.Key])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.Write(w)
}

func sheetValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return v
	default:
		return core.ToString(v)
	}
}

// PDF writes a landscape A4 table, repeating the header on every page.
type PDF struct{}

func (PDF) ContentType() string { return "application/pdf" }
func (PDF) Extension() string   { return "pdf" }

const (
	pdfPageWidth = 277.0 // A4 landscape minus 10mm margins
	pdfRowHeight = 6.0
)

func (PDF) Encode(w io.Writer, cols []*core.Column, records []map[string]any) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := pdfPageWidth
	if len(cols) > 0 {
		width = pdfPageWidth / float64(len(cols))
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range headerRow(cols) {
			pdf.CellFormat(width, pdfRowHeight+1, fitText(pdf, tr(h), width), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	pdf.SetHeaderFunc(header)
	pdf.AddPage()

	for _, r := range records {
		for _, v := range textRow(cols, r) {
			pdf.CellFormat(width, pdfRowHeight, fitText(pdf, tr(v), width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// fitText shortens s until it fits in a cell of width mm.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// PNG renders the table as an image using a fixed-width bitmap font.
type PNG struct{}

func (PNG) ContentType() string { return "image/png" }
func (PNG) Extension() string   { return "png" }

const (
	pngCharWidth  = 7
	pngRowHeight  = 18
	pngPadding    = 6
	pngMaxColChar = 40
)

func (PNG) Encode(w io.Writer, cols []*core.Column, records []map[string]any) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, headerRow(cols))
	for _, r := range records {
		rows = append(rows, textRow(cols, r))
	}

	widths := make([]int, len(cols))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], min(utf8.RuneCountInString(cell), pngMaxColChar))
		}
	}
	total := 1
	for i := range widths {
		widths[i] = widths[i]*pngCharWidth + 2*pngPadding
		total += widths[i]
	}

	img := image.NewRGBA(image.Rect(0, 0, total, len(rows)*pngRowHeight+1))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, total, pngRowHeight), image.NewUniform(color.Gray{Y: 225}), image.Point{}, draw.Src)

	grid := color.Gray{Y: 180}
	for y := 0; y <= len(rows)*pngRowHeight; y += pngRowHeight {
		for x := 0; x < total; x++ {
			img.Set(x, y, grid)
		}
	}

	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
	x := 0
	for i := range cols {
		for y := 0; y < img.Bounds().Dy(); y++ {
			img.Set(x, y, grid)
		}
		for r, row := range rows {
			d.Dot = fixed.P(x+pngPadding, r*pngRowHeight+13)
			d.DrawString(truncateRunes(row[i], pngMaxColChar))
		}
		x += widths[i]
	}
	for y := 0; y < img.Bounds().Dy(); y++ {
		img.Set(total-1, y, grid)
	}

	return png.Encode(w, img)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
