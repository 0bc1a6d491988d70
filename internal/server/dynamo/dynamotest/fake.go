// Package dynamotest provides a programmable fake of dynamo.API for tests.
package dynamotest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type opts = func(*dynamodb.Options)

// Fake records every call and delegates to the optional hook functions.
// Unset hooks return empty outputs.
type Fake struct {
	mu    sync.Mutex
	Calls []string

	GetItemFn          func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	PutItemFn          func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	UpdateItemFn       func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	DeleteItemFn       func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	QueryFn            func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	ScanFn             func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	BatchWriteItemFn   func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
	ListTablesFn       func(*dynamodb.ListTablesInput) (*dynamodb.ListTablesOutput, error)
	DescribeTableFn    func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)
	CreateTableFn      func(*dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLiveFn func(*dynamodb.UpdateTimeToLiveInput) (*dynamodb.UpdateTimeToLiveOutput, error)
}

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
}

// CallCount returns how many times the named operation was invoked.
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *Fake) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...opts) (*dynamodb.GetItemOutput, error) {
	f.record("GetItem")
	if f.GetItemFn != nil {
		return f.GetItemFn(in)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *Fake) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...opts) (*dynamodb.PutItemOutput, error) {
	f.record("PutItem")
	if f.PutItemFn != nil {
		return f.PutItemFn(in)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...opts) (*dynamodb.UpdateItemOutput, error) {
	f.record("UpdateItem")
	if f.UpdateItemFn != nil {
		return f.UpdateItemFn(in)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *Fake) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...opts) (*dynamodb.DeleteItemOutput, error) {
	f.record("DeleteItem")
	if f.DeleteItemFn != nil {
		return f.DeleteItemFn(in)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *Fake) Query(_ context.Context, in *dynamodb.QueryInput, _ ...opts) (*dynamodb.QueryOutput, error) {
	f.record("Query")
	if f.QueryFn != nil {
		return f.QueryFn(in)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *Fake) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...opts) (*dynamodb.ScanOutput, error) {
	f.record("Scan")
	if f.ScanFn != nil {
		return f.ScanFn(in)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (f *Fake) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...opts) (*dynamodb.BatchWriteItemOutput, error) {
	f.record("BatchWriteItem")
	if f.BatchWriteItemFn != nil {
		return f.BatchWriteItemFn(in)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *Fake) ListTables(_ context.Context, in *dynamodb.ListTablesInput, _ ...opts) (*dynamodb.ListTablesOutput, error) {
	f.record("ListTables")
	if f.ListTablesFn != nil {
		return f.ListTablesFn(in)
	}
	return &dynamodb.ListTablesOutput{}, nil
}

func (f *Fake) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...opts) (*dynamodb.DescribeTableOutput, error) {
	f.record("DescribeTable")
	if f.DescribeTableFn != nil {
		return f.DescribeTableFn(in)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *Fake) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...opts) (*dynamodb.CreateTableOutput, error) {
	f.record("CreateTable")
	if f.CreateTableFn != nil {
		return f.CreateTableFn(in)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *Fake) UpdateTimeToLive(_ context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...opts) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.record("UpdateTimeToLive")
	if f.UpdateTimeToLiveFn != nil {
		return f.UpdateTimeToLiveFn(in)
	}
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}
