package estimate

import "fmt"

// CalcCost returns quantity × unit price.
func CalcCost(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}

// CalcClientUnitPrice applies markup then discount to the base price.
func CalcClientUnitPrice(unitPrice, markupPct, discountPct float64) float64 {
	return unitPrice * (1 + markupPct/100) * (1 - discountPct/100)
}

// CalcClientCost returns quantity × client unit price.
func CalcClientCost(quantity, clientUnitPrice float64) float64 {
	return quantity * clientUnitPrice
}

// The formula builders below produce the spreadsheet equivalents of the
// Calc functions. Operand order matches so a spreadsheet evaluates them to
// the same doubles.

// CostFormula returns the cost formula for a sheet row, e.g. "D7*E7".
func CostFormula(row int) string {
	return fmt.Sprintf("D%d*E%d", row, row)
}

// ClientUnitPriceFormula returns the client price formula for a sheet row.
func ClientUnitPriceFormula(row int) string {
	return fmt.Sprintf("E%d*(1+G%d/100)*(1-H%d/100)", row, row, row)
}

// ClientCostFormula returns the client cost formula for a sheet row.
func ClientCostFormula(row int) string {
	return fmt.Sprintf("D%d*I%d", row, row)
}

// SumFormula returns a column sum over [first, last]. An empty range points
// at the row above first, which never holds numbers.
func SumFormula(col Column, first, last int) string {
	if last < first {
		first = first - 1
		last = first
	}
	letter := col.Letter()
	return fmt.Sprintf("SUM(%s%d:%s%d)", letter, first, letter, last)
}
