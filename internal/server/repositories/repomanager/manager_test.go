package repomanager

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo/dynamotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = dynamo.Tables{
	Users:         "users",
	OTP:           "otp_codes",
	Tokens:        "tokens",
	TokenStats:    "token_stats",
	Exchanges:     "exchanges",
	ExchangeStats: "exchange_stats",
	TokenPlatform: "token_platform",
}

func TestManagers_RecordsAllowList(t *testing.T) {
	managers := map[string]RepositoryManager{
		"memory": NewInMemoryRepositoryManager(testTables),
		"dynamo": NewDynamoRepositoryManager(dynamo.New(&dynamotest.Fake{}, logging.NewNop()), testTables),
	}

	for name, m := range managers {
		t.Run(name, func(t *testing.T) {
			for _, table := range []string{"tokens", "token_stats", "exchanges", "exchange_stats", "token_platform"} {
				r, err := m.Records(table)
				require.NoError(t, err)
				assert.Equal(t, table, r.Table())
			}
			for _, table := range []string{"users", "otp_codes", "nope"} {
				_, err := m.Records(table)
				assert.ErrorIs(t, err, common.ErrorNotFound)
			}
			assert.NotNil(t, m.Users())
			assert.NotNil(t, m.OTP())
			assert.Equal(t, testTables, m.Tables())
			assert.NoError(t, m.Ping(context.Background()))
		})
	}
}

func TestDynamoRepositoryManager_CloseStopsPing(t *testing.T) {
	m := NewDynamoRepositoryManager(dynamo.New(&dynamotest.Fake{}, logging.NewNop()), testTables)
	require.NoError(t, m.Close())
	assert.Error(t, m.Ping(context.Background()))
}
