package usecase

import (
	"context"
	"strings"

	"genie-adapter/internal/domain"
)

// ResultFetcher fetches the tabular result of one SQL attachment. It must not
// fail; an unavailable result is reported as an absent fetch.
type ResultFetcher interface {
	GetQueryResult(ctx context.Context, messageID, attachmentID string) domain.QueryResultFetch
}

// Normalize flattens a terminal message into an Answer, fetching SQL results
// for messageID on demand. Attachments are processed in order. When several
// query attachments yield rows, the last one wins.
func Normalize(ctx context.Context, messageID string, msg domain.GenieMessage, fetcher ResultFetcher) domain.Answer {
	ans := domain.Answer{Status: string(msg.Status)}

	for _, att := range msg.Attachments {
		if att.Text != nil {
			ans.Analysis = joinAnalysis(ans.Analysis, strings.TrimSpace(att.Text.Content))
		}
		if att.Kind() != domain.AttachmentQuery {
			continue
		}

		ans.SQL = att.Query.Query
		if desc := att.Query.Description; desc != "" {
			ans.Analysis = joinAnalysis(desc, ans.Analysis)
		}
		if att.AttachmentID == "" || fetcher == nil {
			continue
		}
		fetch := fetcher.GetQueryResult(ctx, messageID, att.AttachmentID)
		if !fetch.Present() {
			continue
		}
		if cols, rows, ok := extractRows(fetch.Result); ok {
			ans.Columns = cols
			ans.Rows = rows
			ans.RowCount = len(rows)
		}
	}
	return ans
}

func joinAnalysis(first, second string) string {
	return strings.TrimSpace(first + "\n" + second)
}

// extractRows prefers the plain data_array encoding and falls back to
// data_typed_array. Both require a non-empty column list.
func extractRows(res *domain.StatementResult) ([]string, [][]any, bool) {
	if res == nil || len(res.Columns) == 0 {
		return nil, nil, false
	}
	if len(res.DataArray) > 0 {
		return res.Columns, res.DataArray, true
	}
	if len(res.TypedArray) == 0 {
		return nil, nil, false
	}
	rows := make([][]any, 0, len(res.TypedArray))
	for _, cells := range res.TypedArray {
		vals := make([]any, 0, len(cells))
		for _, cell := range cells {
			vals = append(vals, cell.Scalar())
		}
		rows = append(rows, vals)
	}
	return res.Columns, rows, true
}
