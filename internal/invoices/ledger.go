package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// ApplyAmount applies a payment slice to the invoice, clamped to the current
// balance so an allocation can never overpay. Returns the amount actually
// applied, rounded to cents.
func ApplyAmount(invoice *models.Invoice, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	applied := amount.Round(2)
	if applied.GreaterThan(invoice.Balance) {
		applied = invoice.Balance
	}
	invoice.Balance = invoice.Balance.Sub(applied).Round(2)
	refreshStatus(invoice)
	return applied
}

// RestoreAmount puts a previously applied slice back on the invoice, clamped
// to the original amount. Used when a payment is voided.
func RestoreAmount(invoice *models.Invoice, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	invoice.Balance = invoice.Balance.Add(amount.Round(2)).Round(2)
	if invoice.Balance.GreaterThan(invoice.Amount) {
		invoice.Balance = invoice.Amount
	}
	refreshStatus(invoice)
}

func refreshStatus(invoice *models.Invoice) {
	switch {
	case invoice.Balance.IsZero():
		invoice.Status = enums.InvoiceStatusPaid
	case invoice.Balance.Equal(invoice.Amount):
		invoice.Status = enums.InvoiceStatusOpen
	default:
		invoice.Status = enums.InvoiceStatusPartial
	}
}
