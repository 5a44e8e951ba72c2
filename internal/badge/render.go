package badge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-pdf/fpdf"

	"checkin/internal/codec"
	"checkin/internal/roster"
)

// ErrNothingRendered is returned when no badge could be produced.
var ErrNothingRendered = errors.New("no badges rendered")

// Failure is an attendee whose badge was skipped.
type Failure struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report summarizes a render.
type Report struct {
	Rendered int       `json:"rendered"`
	Failed   []Failure `json:"failed"`
}

// Renderer lays out one A4 page per attendee.
type Renderer struct {
	Encoder Encoder
	Title   string
}

// NewRenderer creates a renderer using enc for the QR images.
func NewRenderer(enc Encoder, title string) *Renderer {
	return &Renderer{Encoder: enc, Title: title}
}

// Render writes the badge document for records to w. Attendees whose QR
// cannot be encoded are skipped and listed in the report; the rest of the
// batch still renders.
func (r *Renderer) Render(ctx context.Context, records []roster.Record, w io.Writer) (Report, error) {
	var report Report

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		payload, err := codec.EncodePayload(rec.ID, rec.Name)
		if err != nil {
			report.Failed = append(report.Failed, Failure{ID: rec.ID, Name: rec.Name, Error: err.Error()})
			continue
		}
		png, err := r.Encoder.Encode(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Printf("badge for %s skipped: %v", rec.ID, err)
			report.Failed = append(report.Failed, Failure{ID: rec.ID, Name: rec.Name, Error: err.Error()})
			continue
		}
		r.page(pdf, tr, fmt.Sprintf("qr-%d", i), rec, png)
		if pdf.Err() {
			return report, fmt.Errorf("layout badge %s: %w", rec.ID, pdf.Error())
		}
		report.Rendered++
	}

	if report.Rendered == 0 {
		return report, ErrNothingRendered
	}
	if err := pdf.Output(w); err != nil {
		return report, fmt.Errorf("write pdf: %w", err)
	}
	return report, nil
}

func (r *Renderer) page(pdf *fpdf.Fpdf, tr func(string) string, imageName string, rec roster.Record, png []byte) {
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	if r.Title != "" {
		pdf.SetFont("Helvetica", "", 14)
		pdf.SetXY(0, 20)
		pdf.CellFormat(pageW, 10, tr(r.Title), "", 0, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetXY(0, 45)
	pdf.CellFormat(pageW, 14, tr(rec.Name), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetXY(0, 62)
	pdf.CellFormat(pageW, 8, tr("ID: "+rec.ID), "", 0, "C", false, 0, "")
	if rec.Group != "" {
		pdf.SetXY(0, 71)
		pdf.CellFormat(pageW, 8, tr(rec.Group), "", 0, "C", false, 0, "")
	}

	const size = 120.0
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(png))
	pdf.ImageOptions(imageName, (pageW-size)/2, 95, size, size, false, opt, 0, "")
}
