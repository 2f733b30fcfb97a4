package sink

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// PDF renders the decile table as a one-page A4 report.
type PDF struct {
	Path  string
	Title string
}

// NewPDF creates a PDF sink.
func NewPDF(path, title string) *PDF {
	return &PDF{Path: path, Title: title}
}

// WriteDeciles implements Sink.
func (s *PDF) WriteDeciles(table sim.DecileTable) (err error) {
	file, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", sim.ErrPersistence, s.Path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", sim.ErrPersistence, s.Path, closeErr)
		}
	}()

	if err := WritePDF(file, s.Title, table); err != nil {
		return err
	}
	logrus.Infof("Decile report saved to: %s", s.Path)
	return nil
}

// WritePDF writes a titled two-column table of deciles to w.
func WritePDF(w io.Writer, title string, table sim.DecileTable) error {
	if title == "" {
		title = "Ending Asset Value by Decile"
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(contentWidth, 12, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(contentWidth, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2 January 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	half := contentWidth / 2
	pdf.SetFillColor(0, 51, 102)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(half, 8, ColumnDecile, "1", 0, "C", true, 0, "")
	pdf.CellFormat(half, 8, ColumnEndingValue, "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(50, 50, 50)
	for i, d := range table {
		fill := i%2 == 1
		pdf.SetFillColor(245, 247, 250)
		pdf.CellFormat(half, 7, d.Label, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(half, 7, FormatValue(d.Value), "1", 1, "R", fill, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("%w: rendering PDF: %v", sim.ErrPersistence, err)
	}
	return nil
}
