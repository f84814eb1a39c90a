package diff

// Config holds engine tunables loaded from the environment. Request-level
// settings like key columns and tolerances come from the caller instead.
type Config struct {
	// MemoryBudgetMB is the resident memory budget for buffered rows.
	MemoryBudgetMB int `mapstructure:"memory_budget_mb" default:"512"`
	// Partitions is the initial hash partition fanout (power of two).
	Partitions int `mapstructure:"partitions" default:"64"`
	// MaxPartitions bounds recursive partition splitting.
	MaxPartitions int `mapstructure:"max_partitions" default:"1024"`
	// Workers is the number of join workers. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" default:"0"`
	// TempDir is where spill files are written. Empty means os.TempDir.
	TempDir string `mapstructure:"temp_dir" default:""`
}

// Options converts the environment configuration into engine options for a
// compare over the given key columns.
func (c Config) Options(keyColumns []string) Options {
	opts := Options{
		KeyColumns:        keyColumns,
		MemoryBudgetBytes: int64(c.MemoryBudgetMB) << 20,
		PartitionFanout:   c.Partitions,
		MaxFanout:         c.MaxPartitions,
		Workers:           c.Workers,
		TempDir:           c.TempDir,
	}
	return opts
}
