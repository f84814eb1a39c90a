package diff

import (
	"fmt"
	"math/bits"
)

// DuplicatePolicy selects how duplicate-key groups are resolved when a key
// appears on both sides with more than one row on either side.
type DuplicatePolicy string

const (
	// OrdinalPair pairs the i-th source row with the i-th target row by
	// first-seen stream order within the group; leftover rows classify as
	// Added or Removed. This is the default.
	OrdinalPair DuplicatePolicy = "ordinal"
	// Unresolved reports the group sizes without guessing any pairing.
	Unresolved DuplicatePolicy = "unresolved"
)

const (
	// DefaultMemoryBudget is the default working-memory budget (512 MiB).
	DefaultMemoryBudget = 512 << 20
	// DefaultFanout is the partition count used when the fan-out is "auto".
	DefaultFanout = 64
	// DefaultMaxFanout bounds recursive partition splitting on key skew.
	DefaultMaxFanout = 1024
	// defaultSampleCap bounds mismatch samples retained per column.
	defaultSampleCap = 5
)

// Options configures a single Compare invocation. The zero value is not
// usable; KeyColumns is required. All other fields have working defaults.
type Options struct {
	// KeyColumns is the ordered list of key column names. Required.
	KeyColumns []string

	// MemoryBudgetBytes bounds total resident partition data.
	// Zero means DefaultMemoryBudget.
	MemoryBudgetBytes int64

	// PartitionFanout is the partition count P. Must be a power of two.
	// Zero means auto (DefaultFanout).
	PartitionFanout int

	// MaxFanout bounds the effective fan-out reached by recursive splits of
	// skewed partitions. Zero means DefaultMaxFanout.
	MaxFanout int

	// ColumnTolerances maps column names to a numeric epsilon. Columns
	// without an entry compare exactly.
	ColumnTolerances map[string]float64

	// DuplicateKeyPolicy resolves duplicate-key groups. Empty means
	// OrdinalPair.
	DuplicateKeyPolicy DuplicatePolicy

	// ParanoidHashVerification forces an exact value-by-value comparison
	// even when the row hashes match, catching 64-bit hash collisions at
	// the cost of comparing every matched pair.
	ParanoidHashVerification bool

	// Workers is the number of partitions processed concurrently. Each
	// worker receives an equal share of the memory budget. Zero or one
	// means sequential processing.
	Workers int

	// TempDir is the directory for spill files. Empty means the system
	// temp directory.
	TempDir string

	// RetainMatched keeps one row record per matched key in the result.
	// Off by default so result memory stays proportional to the number of
	// differences, not the dataset size.
	RetainMatched bool
}

// Validate checks the options and fills in defaults, returning the
// normalized copy used by Compare.
func (o Options) Validate() (Options, error) {
	if len(o.KeyColumns) == 0 {
		return o, fmt.Errorf("at least one key column is required")
	}
	if o.MemoryBudgetBytes < 0 {
		return o, fmt.Errorf("memory budget must be positive")
	}
	if o.MemoryBudgetBytes == 0 {
		o.MemoryBudgetBytes = DefaultMemoryBudget
	}
	if o.PartitionFanout == 0 {
		o.PartitionFanout = DefaultFanout
	}
	if o.PartitionFanout < 1 || bits.OnesCount(uint(o.PartitionFanout)) != 1 {
		return o, fmt.Errorf("partition fanout must be a power of two, got %d", o.PartitionFanout)
	}
	if o.MaxFanout == 0 {
		o.MaxFanout = DefaultMaxFanout
	}
	if o.MaxFanout < o.PartitionFanout {
		o.MaxFanout = o.PartitionFanout
	}
	if bits.OnesCount(uint(o.MaxFanout)) != 1 {
		return o, fmt.Errorf("max fanout must be a power of two, got %d", o.MaxFanout)
	}
	switch o.DuplicateKeyPolicy {
	case "":
		o.DuplicateKeyPolicy = OrdinalPair
	case OrdinalPair, Unresolved:
	default:
		return o, fmt.Errorf("unknown duplicate key policy %q", o.DuplicateKeyPolicy)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o, nil
}

// tolerance returns the epsilon configured for a column, zero if none.
func (o *Options) tolerance(column string) float64 {
	if o.ColumnTolerances == nil {
		return 0
	}
	return o.ColumnTolerances[column]
}
