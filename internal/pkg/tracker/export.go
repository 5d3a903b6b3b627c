package tracker

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

var csvHeader = []string{"name", "amount", "currency", "billing_cycle", "next_payment_date", "category", "active", "notes"}

// WriteCSV writes subscriptions in a spreadsheet friendly layout. Amounts are
// in major units with two decimals.
func WriteCSV(w io.Writer, subs []models.TrackedSubscription) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range subs {
		row := []string{
			s.Name,
			FormatAmount(s.AmountCents),
			s.Currency,
			s.BillingCycle,
			s.NextPaymentDate.Format(dateLayout),
			s.Category,
			strconv.FormatBool(s.IsActive),
			s.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatAmount renders cents as a decimal string, e.g. 1599 -> "15.99".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
