package sheets

import "billtracker/internal/core"

// BillsHeader matches the CSV export columns.
var BillsHeader = []string{"Name", "Amount", "Due Date", "Category", "Status"}

// BillRows renders the header and one row per bill, in the order given.
func BillRows(bills []core.Bill) [][]string {
	rows := make([][]string, 0, len(bills)+1)
	rows = append(rows, append([]string(nil), BillsHeader...))
	for _, b := range bills {
		rows = append(rows, []string{b.Name, b.Amount.String(), b.DueDate.String(), b.Category, b.Status()})
	}
	return rows
}

// SummaryRows renders the summary block as label/value pairs.
func SummaryRows(s core.Summary, outstanding core.Money) [][]string {
	return [][]string{
		{"Monthly Income", s.Income.String()},
		{"Total Expenses", s.TotalExpenses.String()},
		{"Remaining Balance", s.RemainingBalance.String()},
		{"Outstanding", outstanding.String()},
	}
}
