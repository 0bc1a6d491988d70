// Package repomanager groups the repositories behind one handle so services
// depend on a single storage entry point.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/records"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users() users.Repository
	OTP() otp.Repository
	// Records returns the repository of a market-data table. The users and
	// OTP tables are never reachable this way.
	Records(table string) (records.Repository, error)
	Tables() dynamo.Tables
	Ping(ctx context.Context) error
	Close() error
}

func unknownTable(table string) error {
	return fmt.Errorf("%w: table %q", common.ErrorNotFound, table)
}
