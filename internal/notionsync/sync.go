// Package notionsync mirrors a user's transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
)

// PageSize is the Notion query page size.
const PageSize = 100

// Result counts what a sync did (or would do, on a dry run).
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// SyncTransactions makes the Notion database's pages for userID between from
// and to match txs. Pages are keyed by their "Transaction ID" property:
// known IDs are updated, new ones created, and pages whose ID is missing
// from txs (or empty) are archived. Individual page failures are logged and
// counted; only query failures abort the sync.
func SyncTransactions(ctx context.Context, client NotionService, databaseID, userID string, from, to time.Time, txs []domain.Transaction, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Str("database_id", databaseID).
		Bool("dry_run", dryRun).
		Logger()

	var res Result
	pages, err := queryUserPages(ctx, client, databaseID, userID, from, to)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Int("transaction_count", len(txs)).Msg("Starting Notion sync")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		txID := plainText(page, PropTransactionID)
		if txID != "" && valid[txID] {
			if _, dup := existing[txID]; !dup {
				existing[txID] = string(page.ID)
				continue
			}
		}
		// stale, untagged or duplicate
		if dryRun {
			res.Deleted++
			continue
		}
		if err := client.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Deleted++
	}

	for _, tx := range txs {
		pageID, ok := existing[tx.ID]
		if dryRun {
			if ok {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)
		if ok {
			if _, err := client.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}
		if _, err := client.CreatePage(ctx, databaseID, props); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Notion sync completed")
	return res, nil
}

// queryUserPages pages through the database, restricted to the user's rows
// dated within the range.
func queryUserPages(ctx context.Context, client NotionService, databaseID, userID string, from, to time.Time) ([]notionapi.Page, error) {
	filter := notionapi.AndCompoundFilter{
		notionapi.PropertyFilter{
			Property: PropUserID,
			RichText: &notionapi.TextFilterCondition{Equals: userID},
		},
		notionapi.PropertyFilter{
			Property: PropDate,
			Date:     &notionapi.DateFilterCondition{OnOrAfter: dateOf(from)},
		},
		notionapi.PropertyFilter{
			Property: PropDate,
			Date:     &notionapi.DateFilterCondition{OnOrBefore: dateOf(to)},
		},
	}

	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{Filter: filter, PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryUserPages: %w", err)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}
