package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt captures the details printed on a book lending receipt.
type Receipt struct {
	IssueID     string
	BookID      string
	BookTitle   string
	BookAuthor  string
	BorrowerID  string
	Borrower    string
	IssueDate   time.Time
	DueDate     time.Time
	ReturnDate  *time.Time
	Status      string
	Fine        float64
	GeneratedAt time.Time
}

// ReceiptRenderer produces PDF lending receipts.
type ReceiptRenderer struct {
	schoolName string
}

// NewReceiptRenderer constructs a renderer stamped with the school name.
func NewReceiptRenderer(schoolName string) *ReceiptRenderer {
	if schoolName == "" {
		schoolName = "School Library"
	}
	return &ReceiptRenderer{schoolName: schoolName}
}

// Render creates a single-page PDF receipt for a book issue.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 9, r.schoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Library Lending Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(12, pdf.GetY(), 136, pdf.GetY())
	pdf.Ln(4)

	r.row(pdf, "Receipt No.", receipt.IssueID)
	r.row(pdf, "Book", fmt.Sprintf("%s (%s)", receipt.BookTitle, receipt.BookID))
	if receipt.BookAuthor != "" {
		r.row(pdf, "Author", receipt.BookAuthor)
	}
	r.row(pdf, "Borrower", fmt.Sprintf("%s (%s)", receipt.Borrower, receipt.BorrowerID))
	r.row(pdf, "Issued", receipt.IssueDate.Format("02 Jan 2006"))
	r.row(pdf, "Due", receipt.DueDate.Format("02 Jan 2006"))
	if receipt.ReturnDate != nil {
		r.row(pdf, "Returned", receipt.ReturnDate.Format("02 Jan 2006"))
	}
	r.row(pdf, "Status", receipt.Status)
	if receipt.Fine > 0 {
		pdf.SetFont("Arial", "B", 10)
		r.row(pdf, "Fine Due", fmt.Sprintf("%.2f", receipt.Fine))
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	generated := receipt.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s", generated.Format("02 Jan 2006 15:04 MST")), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ReceiptRenderer) row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(34, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}
