package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/temporal"
)

// Stage names
const (
	StagePartition = "partition"
	StageGraph     = "graph"
	StageTemporal  = "temporal"
)

// Request describes one end-to-end run.
type Request struct {
	Events []models.PointEvent
	// Partitioner is used as-is when set; otherwise one is created from
	// Partition.
	Partitioner partition.Partitioner
	Partition   partition.Config
	Graph       graph.Options
	Temporal    temporal.Options
}

// Result holds the output of every stage.
type Result struct {
	Table      *models.PartitionTable
	Assignment []int64
	Graph      *models.GraphData
	Dataset    *models.Dataset
	Metadata   *models.Metadata
	Timings    map[string]time.Duration
}

// Pipeline runs partitioning, graph construction and temporal assembly in
// sequence.
type Pipeline struct {
	logger    logging.Logger
	builder   *graph.Builder
	assembler *temporal.Assembler
}

// New creates a new pipeline
func New(logger logging.Logger) *Pipeline {
	logger = logging.OrNop(logger)
	return &Pipeline{
		logger:    logger.Named("Pipeline"),
		builder:   graph.NewBuilder(logger),
		assembler: temporal.NewAssembler(logger),
	}
}

// Run executes all stages synchronously. The context is checked between
// stages only.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Timings: make(map[string]time.Duration, 3)}

	part := req.Partitioner
	if part == nil {
		var err error
		part, err = partition.New(req.Partition.Strategy, req.Partition, p.logger)
		if err != nil {
			return nil, err
		}
	}

	err := p.stage(ctx, res, StagePartition, func() error {
		table, assignment, err := part.CreateMapping(req.Events)
		if err != nil {
			return fmt.Errorf("failed to partition events: %w", err)
		}
		res.Table, res.Assignment = table, assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, res, StageGraph, func() error {
		g, err := p.builder.BuildGraphAndAugment(res.Table, req.Events, res.Assignment, req.Graph)
		if err != nil {
			return fmt.Errorf("failed to build graph: %w", err)
		}
		res.Graph = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, res, StageTemporal, func() error {
		ds, meta, err := p.assembler.CreateTemporalDataset(temporal.InputFromGraph(res.Graph), req.Temporal)
		if err != nil {
			return fmt.Errorf("failed to assemble temporal dataset: %w", err)
		}
		res.Dataset, res.Metadata = ds, meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("pipeline complete",
		logging.String("strategy", part.Name()),
		logging.Int("events", len(req.Events)),
		logging.Int("nodes", res.Graph.NumNodes()),
		logging.Int("windows", res.Metadata.NumWindows),
	)
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, res *Result, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline cancelled before %s stage: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Timings[name] = elapsed
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		p.logger.Warn("stage failed", logging.String("stage", name), logging.Err(err))
		return err
	}
	p.logger.Debug("stage complete", logging.String("stage", name), logging.Duration("elapsed", elapsed))
	return nil
}
