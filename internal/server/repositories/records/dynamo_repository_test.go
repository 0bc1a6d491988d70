package records

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo/dynamotest"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDynamoRepo(fake *dynamotest.Fake) *DynamoRepository {
	r := NewDynamoRepository(fake, dynamo.TokensSchema("tokens"))
	r.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func item(t *testing.T, rec models.Record) dynamo.Item {
	t.Helper()
	it, err := attributevalue.MarshalMap(map[string]any(rec))
	require.NoError(t, err)
	return it
}

func TestDynamoRepository_FindByFieldUsesIndex(t *testing.T) {
	fake := &dynamotest.Fake{QueryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		assert.Equal(t, dynamo.SymbolIndex, aws.ToString(in.IndexName))
		return &dynamodb.QueryOutput{Items: []dynamo.Item{item(t, models.Record{"id": "1", "symbol": "BTC", "price": 10.5})}}, nil
	}}
	recs, err := newDynamoRepo(fake).FindByField(context.Background(), "symbol", "BTC")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 10.5, recs[0].Float("price"))
	assert.Zero(t, fake.CallCount("Scan"))
}

func TestDynamoRepository_FindByFieldScansWithoutIndex(t *testing.T) {
	fake := &dynamotest.Fake{ScanFn: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		assert.NotNil(t, in.FilterExpression)
		return &dynamodb.ScanOutput{}, nil
	}}
	recs, err := newDynamoRepo(fake).FindByField(context.Background(), "coin_name", "Bitcoin")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 1, fake.CallCount("Scan"))
}

func TestDynamoRepository_CreateStamps(t *testing.T) {
	var got dynamo.Item
	fake := &dynamotest.Fake{PutItemFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		got = in.Item
		return &dynamodb.PutItemOutput{}, nil
	}}
	rec, err := newDynamoRepo(fake).Create(context.Background(), models.Record{"symbol": "BTC"})
	require.NoError(t, err)
	assert.Equal(t, rec.ID(), dynamo.StringOf(got, "id"))
	assert.Equal(t, "2025-01-01T00:00:00.000000", dynamo.StringOf(got, "created_at"))
}

func TestDynamoRepository_DeleteMissing(t *testing.T) {
	fake := &dynamotest.Fake{DeleteItemFn: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}}
	assert.ErrorIs(t, newDynamoRepo(fake).Delete(context.Background(), "x"), common.ErrorNotFound)
}

func TestDynamoRepository_SearchIsCaseInsensitive(t *testing.T) {
	fake := &dynamotest.Fake{ScanFn: func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		return &dynamodb.ScanOutput{Items: []dynamo.Item{
			item(t, models.Record{"id": "1", "coin_name": "Bitcoin"}),
			item(t, models.Record{"id": "2", "coin_name": "Ethereum"}),
		}}, nil
	}}
	recs, err := newDynamoRepo(fake).Search(context.Background(), "coin_name", "BIT")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0].ID())
}

func TestDynamoRepository_UnavailableStore(t *testing.T) {
	fake := &dynamotest.Fake{GetItemFn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return nil, context.DeadlineExceeded
	}}
	_, err := newDynamoRepo(fake).Get(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrorServiceUnavailable)
}
