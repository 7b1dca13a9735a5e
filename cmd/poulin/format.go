package main

import "github.com/poulinpay/poulinpay/internal/models"

var statusLabels = map[string]string{
	models.InvoiceStatusPending: "در انتظار",
	models.InvoiceStatusPaid:    "پرداخت شده",
	models.InvoiceStatusExpired: "منقضی شده",
}

func persianStatus(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// formatAmount renders an amount with thousands separators, the same
// grouping the web client shows in invoice tables.
func formatAmount(amount int64) string {
	digits := []byte{}
	if amount == 0 {
		return "0"
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	for i := 0; amount > 0; i++ {
		if i > 0 && i%3 == 0 {
			digits = append([]byte{','}, digits...)
		}
		digits = append([]byte{byte('0' + amount%10)}, digits...)
		amount /= 10
	}

	if negative {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}
