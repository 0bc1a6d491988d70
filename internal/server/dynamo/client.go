// Package dynamo owns the DynamoDB connection. A Client is constructed
// explicitly at startup, verified with a round trip (connect-or-fail) and
// handed to the repositories; nothing in the server reaches for a global
// connection.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/liberandum/internal/logging"
)

// API is the subset of *dynamodb.Client used by the server.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Options configures Connect.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// EndpointURL points the client at a local emulator when set.
	EndpointURL   string
	RetryAttempts int
}

// Client wraps the DynamoDB API with lifecycle and table management.
type Client struct {
	db     API
	aws    aws.Config
	logger logging.Logger
	closed atomic.Bool
}

// LoadAWSConfig resolves region, static credentials (when given) and the
// retry budget shared by every AWS client of the process.
func LoadAWSConfig(ctx context.Context, o Options) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(o.Region),
	}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	if o.RetryAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(o.RetryAttempts))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// Connect builds a client and verifies connectivity. It fails instead of
// returning a half-initialized client.
func Connect(ctx context.Context, o Options, logger logging.Logger) (*Client, error) {
	awsCfg, err := LoadAWSConfig(ctx, o)
	if err != nil {
		return nil, err
	}

	db := dynamodb.NewFromConfig(awsCfg, func(opt *dynamodb.Options) {
		if o.EndpointURL != "" {
			opt.BaseEndpoint = aws.String(o.EndpointURL)
		}
	})

	c := &Client{db: db, aws: awsCfg, logger: logger.With("module", "dynamo")}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("dynamodb connect: %w", err)
	}

	c.logger.Info(ctx, "Connected to DynamoDB", "region", o.Region, "endpoint", o.EndpointURL)
	return c, nil
}

// New wraps an existing API implementation.
func New(db API, logger logging.Logger) *Client {
	return &Client{db: db, logger: logger.With("module", "dynamo")}
}

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("dynamodb client closed")

// DB returns the underlying API for repositories.
func (c *Client) DB() API {
	return c.db
}

// AWSConfig returns the resolved AWS configuration, for sibling clients.
func (c *Client) AWSConfig() aws.Config {
	return c.aws
}

// Ping performs a cheap round trip.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	_, err := c.db.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return Translate(err)
}

// Close marks the client as shut down. The SDK holds no connections that
// need releasing beyond the shared HTTP transport.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

// TableNames lists all tables visible to the credentials.
func (c *Client) TableNames(ctx context.Context) ([]string, error) {
	var names []string
	p := dynamodb.NewListTablesPaginator(c.db, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, Translate(err)
		}
		names = append(names, out.TableNames...)
	}
	return names, nil
}

// TableInfo summarizes a table.
type TableInfo struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	ItemCount int64    `json:"item_count"`
	SizeBytes int64    `json:"size_bytes"`
	Indexes   []string `json:"indexes"`
}

// DescribeTable returns the table summary or common.ErrorNotFound.
func (c *Client) DescribeTable(ctx context.Context, name string) (TableInfo, error) {
	out, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return TableInfo{}, Translate(err)
	}
	t := out.Table
	info := TableInfo{
		Name:      aws.ToString(t.TableName),
		Status:    string(t.TableStatus),
		ItemCount: aws.ToInt64(t.ItemCount),
		SizeBytes: aws.ToInt64(t.TableSizeBytes),
	}
	for _, idx := range t.GlobalSecondaryIndexes {
		info.Indexes = append(info.Indexes, aws.ToString(idx.IndexName))
	}
	return info, nil
}

// EnsureTables creates every missing table, waits for it to become active
// and enables TTL where the schema asks for it. It returns the names of the
// tables it created.
func (c *Client) EnsureTables(ctx context.Context, schemas []TableSchema) ([]string, error) {
	existing, err := c.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var created []string
	for _, s := range schemas {
		if have[s.Name] {
			continue
		}
		if _, err := c.db.CreateTable(ctx, s.CreateInput()); err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				continue
			}
			return created, fmt.Errorf("create table %s: %w", s.Name, Translate(err))
		}

		waiter := dynamodb.NewTableExistsWaiter(c.db)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.Name)}, 2*time.Minute); err != nil {
			return created, fmt.Errorf("wait for table %s: %w", s.Name, err)
		}

		if s.TTLAttribute != "" {
			_, err := c.db.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
				TableName: aws.String(s.Name),
				TimeToLiveSpecification: &types.TimeToLiveSpecification{
					AttributeName: aws.String(s.TTLAttribute),
					Enabled:       aws.Bool(true),
				},
			})
			if err != nil {
				c.logger.Warn(ctx, "Enable TTL failed", "table", s.Name, "error", err)
			}
		}

		c.logger.Info(ctx, "Table created", "table", s.Name)
		created = append(created, s.Name)
	}
	return created, nil
}
