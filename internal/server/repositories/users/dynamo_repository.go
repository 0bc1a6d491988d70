package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

type DynamoRepository struct {
	db    dynamo.API
	table string
}

func NewDynamoRepository(db dynamo.API, table string) *DynamoRepository {
	return &DynamoRepository{db: db, table: table}
}

func (r *DynamoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return nil, err
	}

	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		err = dynamo.Translate(err)
		if errors.Is(err, dynamo.ErrConditionFailed) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            dynamo.KeyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dynamo.Translate(err))
	}
	if out.Item == nil {
		return nil, common.ErrorNotFound
	}
	return decode(out.Item)
}

func (r *DynamoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryOne(ctx, dynamo.EmailIndex, "email", email)
}

func (r *DynamoRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	return r.queryOne(ctx, dynamo.NameIndex, "name", name)
}

// GetByRefreshToken scans the whole table; there is no index on tokens.
func (r *DynamoRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("refresh_token").Equal(expression.Value(token))).
		Build()
	if err != nil {
		return nil, err
	}

	items, err := dynamo.ScanAll(ctx, r.db, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(items) == 0 {
		return nil, common.ErrorNotFound
	}
	return decode(items[0])
}

func (r *DynamoRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	fields := upd.Fields()
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	var set expression.UpdateBuilder
	for name, value := range fields {
		set = set.Set(expression.Name(name), expression.Value(value))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return nil, err
	}

	out, err := r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       dynamo.KeyOf(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		err = dynamo.Translate(err)
		if errors.Is(err, dynamo.ErrConditionFailed) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decode(out.Attributes)
}

func (r *DynamoRepository) List(ctx context.Context, role models.Role, limit int) ([]*models.User, error) {
	var (
		items []dynamo.Item
		err   error
	)
	if role != "" {
		keyExpr, berr := expression.NewBuilder().
			WithKeyCondition(expression.Key("role").Equal(expression.Value(string(role)))).
			Build()
		if berr != nil {
			return nil, berr
		}
		items, err = dynamo.QueryAll(ctx, r.db, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(dynamo.RoleIndex),
			KeyConditionExpression:    keyExpr.KeyCondition(),
			ExpressionAttributeNames:  keyExpr.Names(),
			ExpressionAttributeValues: keyExpr.Values(),
		}, limit)
	} else {
		items, err = dynamo.ScanAll(ctx, r.db, &dynamodb.ScanInput{TableName: aws.String(r.table)}, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	users := make([]*models.User, 0, len(items))
	for _, it := range items {
		u, err := decode(it)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *DynamoRepository) Count(ctx context.Context) (int, error) {
	return dynamo.Count(ctx, r.db, &dynamodb.ScanInput{TableName: aws.String(r.table)})
}

func (r *DynamoRepository) queryOne(ctx context.Context, index, field, value string) (*models.User, error) {
	keyExpr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(field).Equal(expression.Value(value))).
		Build()
	if err != nil {
		return nil, err
	}

	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    keyExpr.KeyCondition(),
		ExpressionAttributeNames:  keyExpr.Names(),
		ExpressionAttributeValues: keyExpr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dynamo.Translate(err))
	}
	if len(out.Items) == 0 {
		return nil, common.ErrorNotFound
	}
	return decode(out.Items[0])
}

func decode(item dynamo.Item) (*models.User, error) {
	u := &models.User{}
	if err := attributevalue.UnmarshalMap(item, u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return u, nil
}
