package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Index is a global secondary index keyed by a single string attribute.
type Index struct {
	Name    string
	HashKey string
}

// TableSchema describes a table keyed by the string attribute "id".
type TableSchema struct {
	Name         string
	Indexes      []Index
	TTLAttribute string
}

// PrimaryKey is the hash key attribute of every table.
const PrimaryKey = "id"

const defaultCapacity = 5

// IndexFor returns the index whose hash key is field.
func (s TableSchema) IndexFor(field string) (string, bool) {
	for _, idx := range s.Indexes {
		if idx.HashKey == field {
			return idx.Name, true
		}
	}
	return "", false
}

// CreateInput renders the schema as a CreateTable request.
func (s TableSchema) CreateInput() *dynamodb.CreateTableInput {
	throughput := &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(defaultCapacity),
		WriteCapacityUnits: aws.Int64(defaultCapacity),
	}

	attrs := []types.AttributeDefinition{{AttributeName: aws.String(PrimaryKey), AttributeType: types.ScalarAttributeTypeS}}
	seen := map[string]bool{PrimaryKey: true}

	var gsis []types.GlobalSecondaryIndex
	for _, idx := range s.Indexes {
		if !seen[idx.HashKey] {
			attrs = append(attrs, types.AttributeDefinition{AttributeName: aws.String(idx.HashKey), AttributeType: types.ScalarAttributeTypeS})
			seen[idx.HashKey] = true
		}
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:             aws.String(idx.Name),
			KeySchema:             []types.KeySchemaElement{{AttributeName: aws.String(idx.HashKey), KeyType: types.KeyTypeHash}},
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput,
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(s.Name),
		KeySchema:              []types.KeySchemaElement{{AttributeName: aws.String(PrimaryKey), KeyType: types.KeyTypeHash}},
		AttributeDefinitions:   attrs,
		GlobalSecondaryIndexes: gsis,
		ProvisionedThroughput:  throughput,
	}
}

// Index names shared by repositories.
const (
	EmailIndex      = "email-index"
	NameIndex       = "name-index"
	RoleIndex       = "role-index"
	SymbolIndex     = "symbol-index"
	CoingeckoIndex  = "coingecko-index"
	ExchangeIDIndex = "exchange-id-index"
	OTPTTLAttribute = "ttl"
)

func UsersSchema(name string) TableSchema {
	return TableSchema{Name: name, Indexes: []Index{
		{EmailIndex, "email"}, {NameIndex, "name"}, {RoleIndex, "role"},
	}}
}

func OTPSchema(name string) TableSchema {
	return TableSchema{Name: name, Indexes: []Index{{EmailIndex, "email"}}, TTLAttribute: OTPTTLAttribute}
}

func TokensSchema(name string) TableSchema {
	return TableSchema{Name: name, Indexes: []Index{{SymbolIndex, "symbol"}, {CoingeckoIndex, "coingecko_id"}}}
}

func TokenStatsSchema(name string) TableSchema {
	return TokensSchema(name)
}

func ExchangesSchema(name string) TableSchema {
	return TableSchema{Name: name, Indexes: []Index{{NameIndex, "name"}}}
}

func ExchangeStatsSchema(name string) TableSchema {
	return TableSchema{Name: name, Indexes: []Index{{ExchangeIDIndex, "exchange_id"}, {NameIndex, "name"}}}
}

func TokenPlatformSchema(name string) TableSchema {
	return TableSchema{Name: name}
}

// Tables names every table the server uses.
type Tables struct {
	Users         string
	OTP           string
	Tokens        string
	TokenStats    string
	Exchanges     string
	ExchangeStats string
	TokenPlatform string
}

// Schemas returns the schema of each table in t.
func (t Tables) Schemas() []TableSchema {
	return append([]TableSchema{UsersSchema(t.Users), OTPSchema(t.OTP)}, t.MarketSchemas()...)
}

// MarketSchemas returns the schemas of the market-data tables only.
func (t Tables) MarketSchemas() []TableSchema {
	return []TableSchema{
		TokensSchema(t.Tokens),
		TokenStatsSchema(t.TokenStats),
		ExchangesSchema(t.Exchanges),
		ExchangeStatsSchema(t.ExchangeStats),
		TokenPlatformSchema(t.TokenPlatform),
	}
}
