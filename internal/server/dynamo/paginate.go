package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// ScanAll follows scan pages until limit items are collected (0 means no
// limit) or the table is exhausted.
func ScanAll(ctx context.Context, db API, in *dynamodb.ScanInput, limit int) ([]Item, error) {
	var items []Item
	p := dynamodb.NewScanPaginator(db, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, Translate(err)
		}
		items = append(items, out.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
	}
	return items, nil
}

// QueryAll is ScanAll for queries.
func QueryAll(ctx context.Context, db API, in *dynamodb.QueryInput, limit int) ([]Item, error) {
	var items []Item
	p := dynamodb.NewQueryPaginator(db, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, Translate(err)
		}
		items = append(items, out.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
	}
	return items, nil
}

// Count returns the number of items matched by a scan without reading them.
func Count(ctx context.Context, db API, in *dynamodb.ScanInput) (int, error) {
	in.Select = types.SelectCount
	total := 0
	p := dynamodb.NewScanPaginator(db, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return 0, Translate(err)
		}
		total += int(out.Count)
	}
	return total, nil
}

// KeyOf builds the primary key of an item.
func KeyOf(id string) Item {
	return Item{PrimaryKey: &types.AttributeValueMemberS{Value: id}}
}

// BatchDelete removes the items with the given ids, 25 per request,
// resubmitting unprocessed items. It returns how many were deleted.
func BatchDelete(ctx context.Context, db API, table string, ids []string) (int, error) {
	return batchWrite(ctx, db, table, len(ids), func(i int) types.WriteRequest {
		return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: KeyOf(ids[i])}}
	})
}

// BatchPut writes items, 25 per request.
func BatchPut(ctx context.Context, db API, table string, items []Item) (int, error) {
	return batchWrite(ctx, db, table, len(items), func(i int) types.WriteRequest {
		return types.WriteRequest{PutRequest: &types.PutRequest{Item: items[i]}}
	})
}

const maxBatch = 25

func batchWrite(ctx context.Context, db API, table string, n int, req func(i int) types.WriteRequest) (int, error) {
	done := 0
	for start := 0; start < n; start += maxBatch {
		end := min(start+maxBatch, n)
		reqs := make([]types.WriteRequest, 0, end-start)
		for i := start; i < end; i++ {
			reqs = append(reqs, req(i))
		}

		pending := map[string][]types.WriteRequest{table: reqs}
		for attempt := 0; len(pending[table]) > 0; attempt++ {
			if attempt >= 5 {
				return done, ErrUnprocessed
			}
			out, err := db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return done, Translate(err)
			}
			sent := len(pending[table])
			pending = out.UnprocessedItems
			done += sent - len(pending[table])
		}
	}
	return done, nil
}

// StringValue returns an attribute value for s.
func StringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// StringOf reads a string attribute, "" when absent or not a string.
func StringOf(item Item, attr string) string {
	if s, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
