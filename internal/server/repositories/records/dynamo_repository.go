package records

import (
	"context"
	"errors"
	"fmt"
	"time"

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
	db     dynamo.API
	schema dynamo.TableSchema
	now    func() time.Time
}

func NewDynamoRepository(db dynamo.API, schema dynamo.TableSchema) *DynamoRepository {
	return &DynamoRepository{db: db, schema: schema, now: time.Now}
}

func (r *DynamoRepository) Table() string {
	return r.schema.Name
}

func (r *DynamoRepository) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	rec = prepareNew(rec, r.now())
	item, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return nil, err
	}

	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.schema.Name),
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
	return rec, nil
}

func (r *DynamoRepository) Get(ctx context.Context, id string) (models.Record, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.schema.Name),
		Key:       dynamo.KeyOf(id),
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dynamo.Translate(err))
	}
	if out.Item == nil {
		return nil, common.ErrorNotFound
	}
	return decode(out.Item)
}

func (r *DynamoRepository) Update(ctx context.Context, id string, fields models.Record) (models.Record, error) {
	fields, err := prepareUpdate(fields, r.now())
	if err != nil {
		return nil, err
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
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
	}

	out, err := r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.schema.Name),
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

func (r *DynamoRepository) Delete(ctx context.Context, id string) error {
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(dynamo.PrimaryKey))).
		Build()
	if err != nil {
		return err
	}
	_, err = r.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.schema.Name),
		Key:                      dynamo.KeyOf(id),
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
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

func (r *DynamoRepository) List(ctx context.Context, limit int) ([]models.Record, error) {
	return r.scan(ctx, nil, limit)
}

// FindByField queries the secondary index on field when the table has one and
// falls back to a filtered scan otherwise.
func (r *DynamoRepository) FindByField(ctx context.Context, field, value string) ([]models.Record, error) {
	if index, ok := r.schema.IndexFor(field); ok {
		expr, err := expression.NewBuilder().
			WithKeyCondition(expression.Key(field).Equal(expression.Value(value))).
			Build()
		if err != nil {
			return nil, err
		}
		items, err := dynamo.QueryAll(ctx, r.db, &dynamodb.QueryInput{
			TableName:                 aws.String(r.schema.Name),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}, 0)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return decodeAll(items)
	}

	filter := expression.Name(field).Equal(expression.Value(value))
	return r.scan(ctx, &filter, 0)
}

func (r *DynamoRepository) Search(ctx context.Context, field, value string) ([]models.Record, error) {
	all, err := r.scan(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	var out []models.Record
	for _, rec := range all {
		if rec.Contains(field, value) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *DynamoRepository) Count(ctx context.Context) (int, error) {
	return dynamo.Count(ctx, r.db, &dynamodb.ScanInput{TableName: aws.String(r.schema.Name)})
}

func (r *DynamoRepository) DistinctValues(ctx context.Context, field string) ([]string, error) {
	expr, err := expression.NewBuilder().
		WithProjection(expression.NamesList(expression.Name(field))).
		Build()
	if err != nil {
		return nil, err
	}
	items, err := dynamo.ScanAll(ctx, r.db, &dynamodb.ScanInput{
		TableName:                aws.String(r.schema.Name),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	recs, err := decodeAll(items)
	if err != nil {
		return nil, err
	}
	return distinct(recs, field), nil
}

func (r *DynamoRepository) BatchCreate(ctx context.Context, recs []models.Record) (int, error) {
	now := r.now()
	items := make([]dynamo.Item, 0, len(recs))
	for _, rec := range recs {
		item, err := attributevalue.MarshalMap(map[string]any(prepareNew(rec, now)))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
		}
		items = append(items, item)
	}
	return dynamo.BatchPut(ctx, r.db, r.schema.Name, items)
}

func (r *DynamoRepository) BatchDelete(ctx context.Context, ids []string) (int, error) {
	return dynamo.BatchDelete(ctx, r.db, r.schema.Name, ids)
}

func (r *DynamoRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	filter := expression.Name(models.FieldCreatedAt).LessThan(expression.Value(common.FormatTime(cutoff)))
	old, err := r.scan(ctx, &filter, 0)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(old))
	for _, rec := range old {
		ids = append(ids, rec.ID())
	}
	return dynamo.BatchDelete(ctx, r.db, r.schema.Name, ids)
}

func (r *DynamoRepository) scan(ctx context.Context, filter *expression.ConditionBuilder, limit int) ([]models.Record, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(r.schema.Name)}
	if filter != nil {
		expr, err := expression.NewBuilder().WithFilter(*filter).Build()
		if err != nil {
			return nil, err
		}
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	items, err := dynamo.ScanAll(ctx, r.db, in, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeAll(items)
}

func decode(item dynamo.Item) (models.Record, error) {
	rec := models.Record{}
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func decodeAll(items []dynamo.Item) ([]models.Record, error) {
	out := make([]models.Record, 0, len(items))
	for _, it := range items {
		rec, err := decode(it)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
