package notionsync

import (
	"time"

	"github.com/jomei/notionapi"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropUserID        = "User ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropType          = "Type"
	PropCategory      = "Category"
	PropMerchant      = "Merchant"
	PropSource        = "Source"
	PropTags          = "Tags"
	PropNotes         = "Notes"
	PropUpdatedAt     = "Updated At"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		}},
	}
}

func dateOf(t time.Time) *notionapi.Date {
	d := notionapi.Date(t)
	return &d
}

// TransactionToNotionProperties maps a transaction onto the database's
// properties. Expenses are written as negative amounts.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	amount, _ := tx.Amount.Float64()
	if tx.Type == domain.TransactionExpense {
		amount = -amount
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: tx.Description},
			}},
		},
		PropTransactionID: richText(tx.ID),
		PropUserID:        richText(tx.UserID),
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: dateOf(tx.OccurredOn)},
		},
		PropAmount:   notionapi.NumberProperty{Number: amount},
		PropCurrency: notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Currency}},
		PropType:     notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
		PropSource:   notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Source)}},
		PropUpdatedAt: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: dateOf(tx.UpdatedAt)},
		},
	}

	if tx.CategoryName != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.CategoryName}}
	}
	if tx.Merchant != "" {
		props[PropMerchant] = richText(tx.Merchant)
	}
	if tx.Notes != "" {
		props[PropNotes] = richText(tx.Notes)
	}
	if len(tx.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(tx.Tags))
		for _, t := range tx.Tags {
			opts = append(opts, notionapi.Option{Name: t})
		}
		props[PropTags] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}
	return props
}

// plainText reads a rich text or title property, returning "" when the
// property is missing or empty.
func plainText(page notionapi.Page, name string) string {
	var parts []notionapi.RichText
	switch p := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case notionapi.RichTextProperty:
		parts = p.RichText
	case *notionapi.TitleProperty:
		parts = p.Title
	case notionapi.TitleProperty:
		parts = p.Title
	}
	if len(parts) == 0 {
		return ""
	}
	if parts[0].PlainText != "" {
		return parts[0].PlainText
	}
	if parts[0].Text != nil {
		return parts[0].Text.Content
	}
	return ""
}
