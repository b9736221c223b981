package reporting

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/labstack/echo/v4"

	"github.com/medops/hospitalops/internal/domain/history"
	"github.com/medops/hospitalops/internal/domain/tone"
)

// Source is what the export reads; *history.Board satisfies it.
type Source interface {
	Hospital() string
	Events(q history.Query) ([]history.Event, error)
	Summary() history.Summary
}

// Report is the content of one exported document.
type Report struct {
	Hospital    string
	GeneratedAt time.Time
	Summary     history.Summary
	Events      []history.Event
}

func BuildReport(src Source, q history.Query, now time.Time) (Report, error) {
	events, err := src.Events(q)
	if err != nil {
		return Report{}, fmt.Errorf("reconcile events: %w", err)
	}
	return Report{
		Hospital:    src.Hospital(),
		GeneratedAt: now,
		Summary:     src.Summary(),
		Events:      events,
	}, nil
}

type column struct {
	title string
	width float64
}

var eventColumns = []column{
	{"Date", 32},
	{"Type", 26},
	{"Patient", 42},
	{"MRN", 24},
	{"Department", 36},
	{"Status", 24},
	{"Details", 93},
}

const rowHeight = 7

// WritePDF renders r as a landscape A4 document: a summary block followed by
// the event table, with status cells filled in their tone color.
func WritePDF(w io.Writer, r Report) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetModificationDate(r.GeneratedAt)
	pdf.SetTitle(r.Hospital+" operations report", true)
	pdf.SetAutoPageBreak(false, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Hospital+" operations report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	writeSummary(pdf, r.Summary)
	pdf.Ln(4)

	writeHeader(pdf)
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	pdf.SetFont("Helvetica", "", 8)
	for _, ev := range r.Events {
		if pdf.GetY()+rowHeight > pageH-bottom {
			pdf.AddPage()
			writeHeader(pdf)
			pdf.SetFont("Helvetica", "", 8)
		}
		cells := []string{
			ev.Date.Format("2006-01-02 15:04"),
			string(ev.Type),
			ev.Name,
			ev.Identifier,
			ev.Department,
			ev.Status,
			ev.Details,
		}
		for i, col := range eventColumns {
			text := fit(pdf, tr(cells[i]), col.width-2)
			if col.title == "Status" {
				fillTone(pdf, ev.Tone)
				pdf.CellFormat(col.width, rowHeight, text, "1", 0, "C", true, 0, "")
				continue
			}
			pdf.CellFormat(col.width, rowHeight, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Events) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, rowHeight, "No events in the selected range.", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

func writeSummary(pdf *fpdf.Fpdf, s history.Summary) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)

	rows := []struct {
		label  string
		counts map[string]int
	}{
		{"Admissions", s.Admissions},
		{"Consultations", s.Consultations},
		{"Appointments", s.Appointments},
	}
	for _, row := range rows {
		pdf.CellFormat(40, 6, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, formatCounts(row.counts), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(40, 6, "Completion", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%d of %d records (%d%%)", s.Completed, s.Total, s.CompletionRate), "", 1, "L", false, 0, "")
}

func writeHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(52, 58, 64)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range eventColumns {
		pdf.CellFormat(col.width, rowHeight, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func fillTone(pdf *fpdf.Fpdf, t tone.Tone) {
	r, g, b := t.RGB()
	pdf.SetFillColor(r, g, b)
}

// formatCounts lists status counts in a stable order.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s %d", k, counts[k])
	}
	return buf.String()
}

// fit trims s until it fits in width, marking the cut with "...".
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > width {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}

// ExportPDF renders the filtered timeline. It takes the same query
// parameters as /history.
func (h *Handler) ExportPDF(c echo.Context) error {
	q, err := history.ParseQuery(c)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := time.Now()
	report, err := BuildReport(h.source, q, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, report); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("render pdf: %v", err))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="hospital-report-%s.pdf"`, now.Format("20060102")))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
