package config

import (
	"time"

	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/temporal"
	"github.com/spf13/viper"
)

const (
	DefaultServerPort = ":8080"
	DefaultServerMode = "debug"
	DefaultRateLimit  = 60
	DefaultMaxEvents  = 2000000

	DefaultDBPath = "./data/eventgraph.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "eventgraph:static:"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultCellSize = 1000.0
)

// setViperDefaults registers a default for every key so that environment
// overrides resolve even when the config file omits the key.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.rate_limit", DefaultRateLimit)
	v.SetDefault("server.max_events", DefaultMaxEvents)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("redis.ttl", DefaultRedisTTL)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "eventgraph")

	v.SetDefault("partition.strategy", partition.StrategyGrid)
	v.SetDefault("partition.cell_size", DefaultCellSize)
	v.SetDefault("partition.source_crs", "")
	v.SetDefault("partition.target_crs", "")
	v.SetDefault("partition.max_cells", partition.DefaultMaxCells)
	v.SetDefault("partition.precision", partition.DefaultGeohashPrecision)
	v.SetDefault("partition.shapefile_path", "")
	v.SetDefault("partition.id_field", "")

	g := graph.DefaultOptions()
	v.SetDefault("graph.remove_empty", g.RemoveEmpty)
	v.SetDefault("graph.weighting", g.Weighting)
	v.SetDefault("graph.tolerance", g.Tolerance)
	v.SetDefault("graph.distance_threshold", 0.0)
	v.SetDefault("graph.event_attributes", []string{})

	t := temporal.DefaultOptions()
	v.SetDefault("temporal.bin_width", t.BinWidth)
	v.SetDefault("temporal.truncate_origin", false)
	v.SetDefault("temporal.history_window", t.HistoryWindow)
	v.SetDefault("temporal.horizon", t.Horizon)
	v.SetDefault("temporal.task", t.Task)
	v.SetDefault("temporal.normalize", t.Normalize)
	v.SetDefault("temporal.scaler_type", t.ScalerType)
	v.SetDefault("temporal.output_format", t.OutputFormat)
	v.SetDefault("temporal.downsample_factor", t.DownsampleFactor)
	v.SetDefault("temporal.dynamic_attributes", []string{})
	v.SetDefault("temporal.target_feature", t.TargetFeature)
	v.SetDefault("temporal.fit_scope", t.FitScope)
	v.SetDefault("temporal.train_ratio", 0.0)
}

// ApplyDefaults fills zero-value fields that viper could not default, such
// as those of a Config built in code.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDBPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Partition.Strategy == "" {
		cfg.Partition.Strategy = partition.StrategyGrid
	}
	if cfg.Graph.Weighting == "" {
		cfg.Graph.Weighting = graph.WeightingInverseDistance
	}
	if cfg.Temporal.BinWidth == 0 {
		cfg.Temporal.BinWidth = 24 * time.Hour
	}
	if cfg.Temporal.Task == "" {
		cfg.Temporal.Task = models.TaskClassification
	}
	if cfg.Temporal.HistoryWindow == 0 {
		cfg.Temporal.HistoryWindow = temporal.DefaultOptions().HistoryWindow
	}
	if cfg.Temporal.Horizon == 0 {
		cfg.Temporal.Horizon = temporal.DefaultOptions().Horizon
	}
}
