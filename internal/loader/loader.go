// Package loader runs one load cycle: fetching and parsing the feed while the chart engine
// is checked, and failing as a whole if either side fails.
package loader

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/testkube/flakechart/internal/feed"
	"github.com/testkube/flakechart/internal/results"
)

// Readier reports whether the chart engine can render.
type Readier interface {
	Ready(ctx context.Context) error
}

type Loader struct {
	source feed.Source
	engine Readier
	log    logrus.FieldLogger
}

func New(source feed.Source, engine Readier, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{source: source, engine: engine, log: log}
}

// Load returns the records of the feed once both the data and the chart engine are ready.
// The first failure cancels the other task and is the only error returned.
func (l *Loader) Load(ctx context.Context) ([]results.TestRecord, error) {
	var records []results.TestRecord

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.engine.Ready(ctx)
	})
	g.Go(func() error {
		var err error
		records, err = l.loadRecords(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *Loader) loadRecords(ctx context.Context) ([]results.TestRecord, error) {
	body, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	parser := results.NewParser(l.log)
	records, err := parser.Parse(feed.NewLines(body))
	if err != nil {
		return nil, fmt.Errorf("failed to load test data: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"records":  len(records),
		"rejected": len(parser.Warnings()),
	}).Info("Loaded test data")
	return records, nil
}
