package repomanager

import (
	"context"

	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/records"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process memory. It backs the
// development mode and tests.
type InMemoryRepositoryManager struct {
	tables  dynamo.Tables
	users   *users.MemoryRepository
	otp     *otp.MemoryRepository
	records map[string]*records.MemoryRepository
}

func NewInMemoryRepositoryManager(tables dynamo.Tables) *InMemoryRepositoryManager {
	m := &InMemoryRepositoryManager{
		tables:  tables,
		users:   users.NewMemoryRepository(),
		otp:     otp.NewMemoryRepository(),
		records: map[string]*records.MemoryRepository{},
	}
	for _, s := range tables.MarketSchemas() {
		m.records[s.Name] = records.NewMemoryRepository(s.Name)
	}
	return m
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) OTP() otp.Repository {
	return m.otp
}

func (m *InMemoryRepositoryManager) Records(table string) (records.Repository, error) {
	r, ok := m.records[table]
	if !ok {
		return nil, unknownTable(table)
	}
	return r, nil
}

func (m *InMemoryRepositoryManager) Tables() dynamo.Tables {
	return m.tables
}

func (m *InMemoryRepositoryManager) Ping(context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
