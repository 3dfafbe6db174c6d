package export

import (
	"fmt"
	"time"

	"billtracker/internal/core"
)

const ReportTitle = "Bill Tracker - Monthly Report"

// ReportColumns are the bill table headings, shared with the CSV export.
var ReportColumns = []string{"Name", "Amount", "Due Date", "Category", "Status"}

// ReportRow is one bill, already formatted for display.
type ReportRow struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	DueDate  string `json:"dueDate"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Overdue  bool   `json:"overdue"`
}

// Report is the structured content handed to a document renderer.
type Report struct {
	Title            string       `json:"title"`
	GeneratedAt      time.Time    `json:"generatedAt"`
	GeneratedOn      string       `json:"generatedOn"`
	Income           string       `json:"income"`
	TotalExpenses    string       `json:"totalExpenses"`
	RemainingBalance string       `json:"remainingBalance"`
	Negative         bool         `json:"negative"`
	Summary          core.Summary `json:"summary"`
	Columns          []string     `json:"columns"`
	Bills            []ReportRow  `json:"bills"`
}

// BuildReport formats summary and bills (kept in the order given) using
// symbol as the currency prefix.
func BuildReport(summary core.Summary, bills []core.Bill, generatedAt time.Time, symbol string) Report {
	today := core.DateOf(generatedAt)
	rows := make([]ReportRow, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, ReportRow{
			Name:     b.Name,
			Amount:   b.Amount.Display(symbol),
			DueDate:  b.DueDate.Display(),
			Category: b.Category,
			Status:   b.Status(),
			Overdue:  b.IsOverdue(today),
		})
	}

	return Report{
		Title:            ReportTitle,
		GeneratedAt:      generatedAt,
		GeneratedOn:      today.String(),
		Income:           summary.Income.Display(symbol),
		TotalExpenses:    summary.TotalExpenses.Display(symbol),
		RemainingBalance: summary.RemainingBalance.Display(symbol),
		Negative:         summary.RemainingBalance.IsNegative(),
		Summary:          summary,
		Columns:          append([]string(nil), ReportColumns...),
		Bills:            rows,
	}
}

// Filename suggests a download name, e.g. "bill-tracker-2024-03-01.csv".
func Filename(generatedAt time.Time, ext string) string {
	return fmt.Sprintf("bill-tracker-%s.%s", core.DateOf(generatedAt).String(), ext)
}
