package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
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

func (r *DynamoRepository) Create(ctx context.Context, code *models.OTP) error {
	item, err := attributevalue.MarshalMap(code)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return err
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
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *DynamoRepository) DeleteByEmailAndType(ctx context.Context, email string, typ models.OTPType) (int, error) {
	codes, err := r.query(ctx, email, expression.Name("otp_type").Equal(expression.Value(string(typ))))
	if err != nil {
		return 0, err
	}
	return dynamo.BatchDelete(ctx, r.db, r.table, ids(codes))
}

func (r *DynamoRepository) FindActive(ctx context.Context, email, code string, typ models.OTPType, now string) (*models.OTP, error) {
	filter := expression.Name("otp_code").Equal(expression.Value(code)).
		And(expression.Name("otp_type").Equal(expression.Value(string(typ)))).
		And(expression.Name("used").Equal(expression.Value(false))).
		And(expression.Name("expires_at").GreaterThan(expression.Value(now)))

	codes, err := r.query(ctx, email, filter)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, common.ErrorNotFound
	}
	return codes[0], nil
}

func (r *DynamoRepository) MarkUsed(ctx context.Context, id, now string) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("used"), expression.Value(true)).
			Set(expression.Name("used_at"), expression.Value(now))).
		WithCondition(expression.AttributeExists(expression.Name(dynamo.PrimaryKey)).
			And(expression.Name("used").Equal(expression.Value(false))).
			And(expression.Name("expires_at").GreaterThan(expression.Value(now)))).
		Build()
	if err != nil {
		return err
	}

	_, err = r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       dynamo.KeyOf(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		err = dynamo.Translate(err)
		if errors.Is(err, dynamo.ErrConditionFailed) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *DynamoRepository) DeleteExpired(ctx context.Context, now string) (int, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("expires_at").LessThanEqual(expression.Value(now))).
		WithProjection(expression.NamesList(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return 0, err
	}

	items, err := dynamo.ScanAll(ctx, r.db, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	expired := make([]string, 0, len(items))
	for _, it := range items {
		expired = append(expired, dynamo.StringOf(it, dynamo.PrimaryKey))
	}
	return dynamo.BatchDelete(ctx, r.db, r.table, expired)
}

func (r *DynamoRepository) ListByEmail(ctx context.Context, email string) ([]*models.OTP, error) {
	return r.query(ctx, email, expression.ConditionBuilder{})
}

func (r *DynamoRepository) query(ctx context.Context, email string, filter expression.ConditionBuilder) ([]*models.OTP, error) {
	b := expression.NewBuilder().WithKeyCondition(expression.Key("email").Equal(expression.Value(email)))
	if filter.IsSet() {
		b = b.WithFilter(filter)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, err
	}

	items, err := dynamo.QueryAll(ctx, r.db, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(dynamo.EmailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	codes := make([]*models.OTP, 0, len(items))
	for _, it := range items {
		c := &models.OTP{}
		if err := attributevalue.UnmarshalMap(it, c); err != nil {
			return nil, fmt.Errorf("unmarshal otp: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, nil
}

func ids(codes []*models.OTP) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.ID)
	}
	return out
}
