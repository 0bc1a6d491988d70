package repomanager

import (
	"context"

	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/records"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/users"
)

type DynamoRepositoryManager struct {
	client  *dynamo.Client
	tables  dynamo.Tables
	users   users.Repository
	otp     otp.Repository
	records map[string]records.Repository
}

func NewDynamoRepositoryManager(client *dynamo.Client, tables dynamo.Tables) *DynamoRepositoryManager {
	m := &DynamoRepositoryManager{
		client:  client,
		tables:  tables,
		users:   users.NewDynamoRepository(client.DB(), tables.Users),
		otp:     otp.NewDynamoRepository(client.DB(), tables.OTP),
		records: map[string]records.Repository{},
	}
	for _, s := range tables.MarketSchemas() {
		m.records[s.Name] = records.NewDynamoRepository(client.DB(), s)
	}
	return m
}

func (m *DynamoRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *DynamoRepositoryManager) OTP() otp.Repository {
	return m.otp
}

func (m *DynamoRepositoryManager) Records(table string) (records.Repository, error) {
	r, ok := m.records[table]
	if !ok {
		return nil, unknownTable(table)
	}
	return r, nil
}

func (m *DynamoRepositoryManager) Tables() dynamo.Tables {
	return m.tables
}

func (m *DynamoRepositoryManager) Client() *dynamo.Client {
	return m.client
}

func (m *DynamoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx)
}

func (m *DynamoRepositoryManager) Close() error {
	return m.client.Close()
}
