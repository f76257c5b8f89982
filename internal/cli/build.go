package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/ingest"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/pipeline"
	"github.com/jengzang/eventgraph-go/internal/stats"
	"github.com/jengzang/eventgraph-go/internal/temporal"
)

// BuildOptions holds flags of the build command.
type BuildOptions struct {
	EventsPath      string
	Columns         ingest.EventColumns
	StaticPath      string
	StaticKeyColumn string
	AdjacencyPath   string
	ShapefilePath   string
	IDField         string
	Strategy        string
	CellSize        float64
	Precision       int
	HistoryWindow   int
	Horizon         int
	BinWidth        time.Duration
	Task            string
	OutputFormat    string
	TrainRatio      float64
	ValRatio        float64
	OutPath         string
	GraphOutPath    string
	Indent          bool
	Summary         bool
}

// buildOutput is the JSON document written by the build command. Either
// Dataset or the three split datasets are set.
type buildOutput struct {
	Metadata *models.Metadata `json:"metadata"`
	Dataset  *models.Dataset  `json:"dataset,omitempty"`
	Train    *models.Dataset  `json:"train,omitempty"`
	Val      *models.Dataset  `json:"val,omitempty"`
	Test     *models.Dataset  `json:"test,omitempty"`
	Summary  *stats.Summary   `json:"summary,omitempty"`
}

// graphOutput is the region graph with per-event assignments in input
// order. Events themselves are left out: invalid coordinates are NaN and
// cannot be encoded.
type graphOutput struct {
	*models.GraphData
	Events            []models.AugmentedEvent `json:"events,omitempty"`
	EventPartitionIDs []int64                 `json:"event_partition_ids"`
	EventNodeIDs      []int                   `json:"event_node_ids"`
}

func newGraphOutput(g *models.GraphData) graphOutput {
	out := graphOutput{
		GraphData:         g,
		EventPartitionIDs: make([]int64, len(g.Events)),
		EventNodeIDs:      make([]int, len(g.Events)),
	}
	for i, e := range g.Events {
		out.EventPartitionIDs[i] = e.PartitionID
		out.EventNodeIDs[i] = e.NodeID
	}
	return out
}

func newBuildCmd() *cobra.Command {
	opts := &BuildOptions{Columns: ingest.DefaultEventColumns()}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a dataset from an event file",
		Long: "Reads events from CSV or XLSX, partitions them, builds the region graph\n" +
			"and writes the windowed dataset with its metadata as JSON.",
		Example: "  eventgraph build --events crashes.csv --strategy grid --cell-size 500 --history 7 --out dataset.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.EventsPath, "events", "", "event table (.csv or .xlsx)")
	f.StringVar(&opts.Columns.Lat, "lat-col", opts.Columns.Lat, "latitude column")
	f.StringVar(&opts.Columns.Lon, "lon-col", opts.Columns.Lon, "longitude column")
	f.StringVar(&opts.Columns.Time, "time-col", opts.Columns.Time, "timestamp column")
	f.StringVar(&opts.Columns.TimeLayout, "time-layout", opts.Columns.TimeLayout, "Go time layout of the timestamp column")
	f.StringSliceVar(&opts.Columns.Attributes, "attributes", nil, "numeric event columns to keep (default: all)")
	f.StringVar(&opts.StaticPath, "static", "", "static feature table (.csv or .xlsx)")
	f.StringVar(&opts.StaticKeyColumn, "static-key", "", "join column of the static feature table (default: first column)")
	f.StringVar(&opts.AdjacencyPath, "adjacency", "", "square adjacency matrix (.csv or .xlsx) replacing inferred adjacency")
	f.StringVar(&opts.ShapefilePath, "shapefile", "", "partition polygons; implies --strategy polygon")
	f.StringVar(&opts.IDField, "id-field", "", "partition id attribute of the shapefile")
	f.StringVar(&opts.Strategy, "strategy", "", "partition strategy (grid, polygon, geohash)")
	f.Float64Var(&opts.CellSize, "cell-size", 0, "grid cell size in target CRS units")
	f.IntVar(&opts.Precision, "precision", 0, "geohash precision")
	f.IntVar(&opts.HistoryWindow, "history", 0, "history window length in bins")
	f.IntVar(&opts.Horizon, "horizon", 0, "prediction horizon in bins")
	f.DurationVar(&opts.BinWidth, "bin-width", 0, "time bin width")
	f.StringVar(&opts.Task, "task", "", "classification or regression")
	f.StringVar(&opts.OutputFormat, "format", "", "dataset layout (4d or 3d)")
	f.Float64Var(&opts.TrainRatio, "train-ratio", 0, "split windows into train/val/test with this train share")
	f.Float64Var(&opts.ValRatio, "val-ratio", 0, "validation share when splitting")
	f.StringVarP(&opts.OutPath, "out", "o", "", "output file (default: stdout)")
	f.StringVar(&opts.GraphOutPath, "graph-out", "", "also write the region graph as JSON")
	f.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
	f.BoolVar(&opts.Summary, "summary", false, "include a dataset summary")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

// applyFlags overlays explicitly set flags on the configured defaults.
func (o *BuildOptions) applyFlags(cmd *cobra.Command, req *pipeline.Request) {
	changed := cmd.Flags().Changed
	if o.ShapefilePath != "" {
		req.Partition.Strategy = partition.StrategyPolygon
		req.Partition.ShapefilePath = o.ShapefilePath
	}
	if changed("id-field") {
		req.Partition.IDField = o.IDField
	}
	if changed("strategy") {
		req.Partition.Strategy = o.Strategy
	}
	if changed("cell-size") {
		req.Partition.CellSize = o.CellSize
	}
	if changed("precision") {
		req.Partition.Precision = o.Precision
	}
	if changed("history") {
		req.Temporal.HistoryWindow = o.HistoryWindow
	}
	if changed("horizon") {
		req.Temporal.Horizon = o.Horizon
	}
	if changed("bin-width") {
		req.Temporal.BinWidth = o.BinWidth
	}
	if changed("task") {
		req.Temporal.Task = o.Task
	}
	if changed("format") {
		req.Temporal.OutputFormat = o.OutputFormat
	}
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	logger := cliCtx.Logger.Named("Build")
	cfg := cliCtx.Config

	events, err := ingest.LoadEvents(opts.EventsPath, opts.Columns)
	if err != nil {
		return err
	}
	logger.Info("events loaded", logging.String("path", opts.EventsPath), logging.Int("count", len(events)))

	req := pipeline.Request{
		Events:    events,
		Partition: cfg.Partition,
		Graph:     cfg.Graph,
		Temporal:  cfg.Temporal,
	}
	opts.applyFlags(cmd, &req)

	if opts.StaticPath != "" {
		table, err := ingest.LoadStaticFeatures(opts.StaticPath, opts.StaticKeyColumn, "")
		if err != nil {
			return err
		}
		req.Graph.StaticFeatures = table
	}
	if opts.AdjacencyPath != "" {
		rows, err := ingest.LoadMatrix(opts.AdjacencyPath, "")
		if err != nil {
			return err
		}
		override, err := graph.OverrideFromRows(rows)
		if err != nil {
			return err
		}
		req.Graph.AdjacencyOverride = override
	}

	res, err := pipeline.New(cliCtx.Logger).Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := buildOutput{Metadata: res.Metadata}
	if opts.Summary {
		out.Summary, err = stats.Summarize(res.Metadata, res.Dataset)
		if err != nil {
			return err
		}
	}
	if opts.TrainRatio > 0 || opts.ValRatio > 0 {
		out.Train, out.Val, out.Test, err = temporal.Split(res.Dataset, opts.TrainRatio, opts.ValRatio)
		if err != nil {
			return err
		}
	} else {
		out.Dataset = res.Dataset
	}

	if err := writeTo(cmd.OutOrStdout(), opts.OutPath, out, opts.Indent); err != nil {
		return err
	}
	if opts.GraphOutPath != "" {
		if err := writeTo(nil, opts.GraphOutPath, newGraphOutput(res.Graph), opts.Indent); err != nil {
			return err
		}
	}

	logger.Info("dataset written",
		logging.Int("nodes", res.Graph.NumNodes()),
		logging.Int("edges", res.Graph.NumEdges()),
		logging.Int("windows", res.Metadata.NumWindows),
		logging.Int("unassigned", res.Metadata.UnassignedEvents),
	)
	return nil
}

// writeTo writes JSON to path, or to stdout when path is empty.
func writeTo(stdout io.Writer, path string, data interface{}, indent bool) error {
	if path == "" {
		return writeJSON(stdout, data, indent)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeJSON(f, data, indent); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
