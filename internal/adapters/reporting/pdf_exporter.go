// Package reporting renders a run report for one interface: session
// overview, cumulative traffic counters, roam history and the bad client's
// attempt ledger.
package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

const historyLimit = 25

// PDFExporter exports run reports to PDF format.
type PDFExporter struct {
	audit ports.AuditRepository
}

// NewPDFExporter creates a new PDF exporter over the audit history.
func NewPDFExporter(audit ports.AuditRepository) *PDFExporter {
	return &PDFExporter{audit: audit}
}

// RunReport is the input for one rendered report.
type RunReport struct {
	Role      string
	Interface string
	Hostname  string
	Session   domain.Session
	Stats     domain.TrafficStats
}

// Export generates the PDF for one interface's run.
func (e *PDFExporter) Export(report RunReport) ([]byte, error) {
	roams, err := e.audit.ListRoamEvents(report.Interface, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading roam history: %w", err)
	}
	attempts, err := e.audit.ListAuthAttempts(report.Interface, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading auth history: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addSessionOverview(pdf, report)
	e.addTrafficStats(pdf, report.Stats)
	e.addRoamHistory(pdf, roams)
	e.addAuthHistory(pdf, attempts)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report RunReport) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, "Wireless Client Run Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s client on %s (%s)", report.Role, report.Interface, report.Hostname),
		"", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, "Generated: "+time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (e *PDFExporter) addSessionOverview(pdf *gofpdf.Fpdf, report RunReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Session", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	rows := [][2]string{
		{"State", string(report.Session.State)},
		{"SSID", orDash(report.Session.SSID)},
		{"BSSID", orDash(report.Session.BSSID)},
		{"IPv4", orDash(report.Session.IPv4)},
	}
	if !report.Session.EstablishedAt.IsZero() {
		rows = append(rows, [2]string{"Established", report.Session.EstablishedAt.Format("2006-01-02 15:04:05")})
	}
	if !report.Session.LastRoam.IsZero() {
		rows = append(rows, [2]string{"Last roam", report.Session.LastRoam.Format("2006-01-02 15:04:05")})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(40, 7, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addTrafficStats(pdf *gofpdf.Fpdf, stats domain.TrafficStats) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Traffic", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 7, fmt.Sprintf("Downloaded: %d bytes", stats.DownloadBytes), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Uploaded: %d bytes", stats.UploadBytes), "", 1, "L", false, 0, "")
	if !stats.UpdatedAt.IsZero() {
		pdf.CellFormat(0, 7, "Last update: "+stats.UpdatedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addRoamHistory(pdf *gofpdf.Fpdf, roams []domain.RoamEvent) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Roam History", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(roams) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No roam events recorded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(40, 8, "Time", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "From", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "To", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Signal", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, roam := range roams {
		if pdf.GetY() > 265 {
			pdf.AddPage()
		}
		pdf.CellFormat(40, 7, roam.Timestamp.Format("01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, roam.FromBSSID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, roam.ToBSSID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d dBm", roam.ResultingSignal), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addAuthHistory(pdf *gofpdf.Fpdf, attempts []domain.AuthAttempt) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Authentication Attempts", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(attempts) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No authentication attempts recorded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(40, 8, "Time", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Pattern", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Pw Length", "1", 0, "C", true, 0, "")
	pdf.CellFormat(65, 8, "Outcome", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, attempt := range attempts {
		if pdf.GetY() > 265 {
			pdf.AddPage()
		}
		r, g, b := outcomeColor(attempt.Outcome)
		pdf.CellFormat(40, 7, attempt.Timestamp.Format("01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, string(attempt.Pattern), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", attempt.PasswordLength), "1", 0, "C", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(65, 7, string(attempt.Outcome), "1", 1, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
	}
	pdf.Ln(8)
}

func outcomeColor(outcome domain.AuthOutcome) (r, g, b int) {
	switch outcome {
	case domain.RejectedAsExpected:
		return 52, 199, 89 // Green
	case domain.UnexpectedSuccess:
		return 220, 53, 69 // Red
	default:
		return 255, 149, 0 // Orange
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report RunReport) {
	pdf.SetY(-20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by wifisim | %s/%s", report.Role, report.Interface),
		"", 1, "C", false, 0, "")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
