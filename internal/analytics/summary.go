package analytics

import (
	"fmt"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// Summary renders the headline figures of d as plain text for the AI advisor.
func Summary(d Dashboard) string {
	var b strings.Builder
	money := func(v interface{ String() string }) string { return v.String() + " " + d.Currency }

	fmt.Fprintf(&b, "Period: %s (%s to %s)\n", d.Period.Name,
		d.Period.Start.Format("2006-01-02"), d.Period.End.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Fprintf(&b, "Income: %s\n", money(d.Totals.Income))
	fmt.Fprintf(&b, "Expenses: %s\n", money(d.Totals.Expenses))
	fmt.Fprintf(&b, "Net: %s\n", money(d.Totals.Net))
	fmt.Fprintf(&b, "Savings rate: %s%%\n", d.Totals.SavingsRate.StringFixed(2))
	fmt.Fprintf(&b, "Net worth: %s (accounts %s, stocks %s, crypto %s, metals %s)\n",
		money(d.NetWorth.Total), d.NetWorth.Accounts, d.NetWorth.Stocks, d.NetWorth.Crypto, d.NetWorth.Metals)

	if len(d.CategoryBreakdown) > 0 {
		b.WriteString("Top expense categories:\n")
		for i, c := range d.CategoryBreakdown {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s (%s%%)\n", c.Name, money(c.Amount), c.Percent.StringFixed(2))
		}
	}

	for _, s := range d.Budgets {
		if s.Status != StatusOK {
			fmt.Fprintf(&b, "Budget %q is %s: spent %s of %s\n", s.Name, s.Status, money(s.Spent), money(s.Amount))
		}
	}

	if len(d.UpcomingBills) > 0 {
		b.WriteString("Upcoming bills:\n")
		for _, u := range d.UpcomingBills {
			fmt.Fprintf(&b, "- %s: %s due in %d days\n", u.Name, money(u.Amount), u.DaysUntilDue)
		}
	}

	if len(d.MonthlyTrend) > 0 {
		b.WriteString("Monthly trend (income/expenses):\n")
		for _, m := range d.MonthlyTrend {
			fmt.Fprintf(&b, "- %s: %s / %s\n", m.Month, m.Income, m.Expenses)
		}
	}
	return b.String()
}

// Describe renders one transaction on a line, used in AI prompts.
func Describe(tx domain.Transaction) string {
	category := tx.CategoryName
	if category == "" {
		category = uncategorized
	}
	return fmt.Sprintf("%s %s %s %s %q [%s]", tx.OccurredOn.Format("2006-01-02"), tx.Type,
		tx.Amount.StringFixed(2), tx.Currency, tx.Description, category)
}
