package loader

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testkube/flakechart/internal/feed"
	"github.com/testkube/flakechart/internal/results"
)

const data = `Commit Hash,Test Date,Environment,Test,Status,Duration
abc,2024-01-01,env1,t1,Passed,5
,,,,Failed,
`

type engineFunc func(ctx context.Context) error

func (f engineFunc) Ready(ctx context.Context) error {
	return f(ctx)
}

var readyEngine = engineFunc(func(context.Context) error { return nil })

type failingSource struct {
	err error
}

func (s failingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return nil, s.err
}

func TestLoad(t *testing.T) {
	records, err := New(feed.NewStaticClient(data), readyEngine, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "abc", records[1].Commit)
	assert.Equal(t, results.StatusFailed, records[1].Status)
}

func TestLoadFetchError(t *testing.T) {
	fetchErr := &feed.FetchError{URL: "http://feed/data.csv", StatusCode: 403, Body: "denied"}

	var engineCalls int32
	engine := engineFunc(func(ctx context.Context) error {
		atomic.AddInt32(&engineCalls, 1)
		<-ctx.Done()
		return ctx.Err()
	})

	records, err := New(failingSource{err: fetchErr}, engine, nil).Load(context.Background())
	assert.Nil(t, records)

	var got *feed.FetchError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 403, got.StatusCode)
	assert.False(t, errors.Is(err, context.Canceled), "only the first failure is reported")
	assert.Equal(t, int32(1), atomic.LoadInt32(&engineCalls))
}

func TestLoadEngineError(t *testing.T) {
	engineErr := errors.New("echarts unavailable")
	engine := engineFunc(func(context.Context) error { return engineErr })

	records, err := New(feed.NewStaticClient(data), engine, nil).Load(context.Background())
	assert.Nil(t, records)
	assert.ErrorIs(t, err, engineErr)
}

func TestLoadSchemaError(t *testing.T) {
	_, err := New(feed.NewStaticClient("commit,date\n"), readyEngine, nil).Load(context.Background())

	var schemaErr *results.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestLoadEmptyDataset(t *testing.T) {
	_, err := New(feed.NewStaticClient("a,b,c,d,e,f\nx,y\n"), readyEngine, nil).Load(context.Background())

	var empty *results.EmptyDatasetError
	assert.True(t, errors.As(err, &empty))
}
