package users

import (
	"context"
	"strings"
	"testing"

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

func marshalUser(t *testing.T, u *models.User) dynamo.Item {
	t.Helper()
	item, err := attributevalue.MarshalMap(u)
	require.NoError(t, err)
	return item
}

func TestDynamoRepository_CreateIsConditional(t *testing.T) {
	var got *dynamodb.PutItemInput
	fake := &dynamotest.Fake{PutItemFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		got = in
		return &dynamodb.PutItemOutput{}, nil
	}}
	r := NewDynamoRepository(fake, "users")

	u := &models.User{ID: "u1", Email: "a@x.com", Name: "alice", Role: models.RoleUser, IsActive: true}
	_, err := r.Create(context.Background(), u)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "users", aws.ToString(got.TableName))
	assert.Contains(t, aws.ToString(got.ConditionExpression), "attribute_not_exists")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a@x.com"}, got.Item["email"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, got.Item["is_active"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: ""}, got.Item["hashed_password"])
}

func TestDynamoRepository_CreateConflict(t *testing.T) {
	fake := &dynamotest.Fake{PutItemFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}}
	_, err := NewDynamoRepository(fake, "users").Create(context.Background(), &models.User{ID: "u1"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestDynamoRepository_GetByID(t *testing.T) {
	fake := &dynamotest.Fake{GetItemFn: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		id := in.Key["id"].(*types.AttributeValueMemberS).Value
		if id != "u1" {
			return &dynamodb.GetItemOutput{}, nil
		}
		return &dynamodb.GetItemOutput{Item: marshalUser(t, &models.User{ID: "u1", Email: "a@x.com", Role: models.RoleAdmin})}, nil
	}}
	r := NewDynamoRepository(fake, "users")

	u, err := r.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = r.GetByID(context.Background(), "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDynamoRepository_GetByEmailUsesIndex(t *testing.T) {
	var got *dynamodb.QueryInput
	fake := &dynamotest.Fake{QueryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		got = in
		return &dynamodb.QueryOutput{Items: []dynamo.Item{marshalUser(t, &models.User{ID: "u1", Email: "a@x.com"})}}, nil
	}}
	u, err := NewDynamoRepository(fake, "users").GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, dynamo.EmailIndex, aws.ToString(got.IndexName))
	assert.Contains(t, got.ExpressionAttributeNames, "#0")
}

func TestDynamoRepository_GetByNameNotFound(t *testing.T) {
	_, err := NewDynamoRepository(&dynamotest.Fake{}, "users").GetByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDynamoRepository_GetByRefreshTokenScans(t *testing.T) {
	fake := &dynamotest.Fake{ScanFn: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		assert.NotNil(t, in.FilterExpression)
		return &dynamodb.ScanOutput{Items: []dynamo.Item{marshalUser(t, &models.User{ID: "u7", RefreshToken: "rt"})}}, nil
	}}
	u, err := NewDynamoRepository(fake, "users").GetByRefreshToken(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "u7", u.ID)
	assert.Equal(t, 1, fake.CallCount("Scan"))
}

func TestDynamoRepository_UpdateMissingIsNotFound(t *testing.T) {
	var got *dynamodb.UpdateItemInput
	fake := &dynamotest.Fake{UpdateItemFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		got = in
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}}
	active := false
	_, err := NewDynamoRepository(fake, "users").Update(context.Background(), "u1", models.UserUpdate{IsActive: &active})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NotNil(t, got)
	assert.True(t, strings.HasPrefix(aws.ToString(got.UpdateExpression), "SET "))
	assert.Contains(t, aws.ToString(got.ConditionExpression), "attribute_exists")
	assert.Equal(t, types.ReturnValueAllNew, got.ReturnValues)
}

func TestDynamoRepository_UpdateReturnsNewImage(t *testing.T) {
	fake := &dynamotest.Fake{UpdateItemFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return &dynamodb.UpdateItemOutput{Attributes: marshalUser(t, &models.User{ID: "u1", Role: models.RoleProUser})}, nil
	}}
	role := models.RoleProUser
	u, err := NewDynamoRepository(fake, "users").Update(context.Background(), "u1", models.UserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProUser, u.Role)
}

func TestDynamoRepository_ListByRoleQueriesIndex(t *testing.T) {
	fake := &dynamotest.Fake{QueryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		assert.Equal(t, dynamo.RoleIndex, aws.ToString(in.IndexName))
		return &dynamodb.QueryOutput{Items: []dynamo.Item{
			marshalUser(t, &models.User{ID: "a", Role: models.RoleAdmin}),
			marshalUser(t, &models.User{ID: "b", Role: models.RoleAdmin}),
		}}, nil
	}}
	users, err := NewDynamoRepository(fake, "users").List(context.Background(), models.RoleAdmin, 1)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 0, fake.CallCount("Scan"))
}
