package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

const maxDescription = 500

// RowError describes a statement row that was skipped.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// truncateRunes cuts s to at most n bytes on a rune boundary.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// TransformRows validates the model's rows and converts them into
// transactions owned by userID. The sign of the amount decides income or
// expense. Unknown categories become nil. Invalid rows are skipped and
// reported.
func TransformRows(rows []ai.StatementRow, userID, defaultCurrency string, matcher *CategoryMatcher) ([]domain.Transaction, []RowError) {
	var (
		out     []domain.Transaction
		skipped []RowError
	)
	for i, r := range rows {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			skipped = append(skipped, RowError{Row: i, Reason: fmt.Sprintf("invalid date %q", r.Date)})
			continue
		}
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			skipped = append(skipped, RowError{Row: i, Reason: "missing description"})
			continue
		}
		desc = truncateRunes(desc, maxDescription)
		if r.Amount.IsZero() {
			skipped = append(skipped, RowError{Row: i, Reason: "zero amount"})
			continue
		}
		if !domain.FitsMoneyScale(r.Amount) {
			skipped = append(skipped, RowError{Row: i, Reason: fmt.Sprintf("amount %s has more than %d decimal places", r.Amount, domain.MoneyPlaces)})
			continue
		}

		typ := domain.TransactionIncome
		if r.Amount.IsNegative() {
			typ = domain.TransactionExpense
		}
		currency := strings.ToUpper(strings.TrimSpace(r.Currency))
		if len(currency) != 3 {
			currency = defaultCurrency
		}

		out = append(out, domain.Transaction{
			UserID:      userID,
			CategoryID:  matcher.Match(r.Category, typ),
			Type:        typ,
			Amount:      r.Amount.Abs(),
			Currency:    domain.NormalizeCurrency(currency),
			Description: desc,
			OccurredOn:  date,
			Source:      domain.SourceImport,
		})
	}
	return out, skipped
}
