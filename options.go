package geoprox

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CostHeuristic selects the split policy of the heuristic tree builder.
type CostHeuristic int

const (
	// CostLongestAxisCenter splits at the centroid-bound midpoint on
	// the axis of largest centroid spread, as the median-split tree.
	CostLongestAxisCenter CostHeuristic = iota
	// CostSurfaceArea evaluates candidate planes through binned
	// surface-area cost estimates and permits spatial splits of
	// straddling primitives.
	CostSurfaceArea
)

const (
	defaultLeafSize = 4
	defaultBinCount = 32
)

type config struct {
	leafSize  int
	binCount  int
	heuristic CostHeuristic
	logger    *zap.SugaredLogger
}

// Option configures an accelerator build.
type Option func(*config)

// WithLeafSize sets the primitive-count threshold below which a tree
// node stops splitting. Default 4.
func WithLeafSize(n int) Option { return func(c *config) { c.leafSize = n } }

// WithBinCount sets the number of bins used by CostSurfaceArea split
// evaluation. Default 32.
func WithBinCount(n int) Option { return func(c *config) { c.binCount = n } }

// WithCostHeuristic selects the SBVH split policy.
func WithCostHeuristic(h CostHeuristic) Option { return func(c *config) { c.heuristic = h } }

// WithLogger installs a logger for build diagnostics. Queries never
// log. Default is a nop logger.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *config) { c.logger = l } }

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		leafSize:  defaultLeafSize,
		binCount:  defaultBinCount,
		heuristic: CostLongestAxisCenter,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, cfg.validate()
}

func (c *config) validate() error {
	var err error
	if c.leafSize < 1 {
		err = multierr.Append(err, errors.Errorf("leaf size must be at least 1, got %d", c.leafSize))
	}
	if c.binCount < 2 {
		err = multierr.Append(err, errors.Errorf("bin count must be at least 2, got %d", c.binCount))
	}
	if c.heuristic != CostLongestAxisCenter && c.heuristic != CostSurfaceArea {
		err = multierr.Append(err, errors.Errorf("unknown cost heuristic %d", c.heuristic))
	}
	if c.logger == nil {
		err = multierr.Append(err, errors.New("logger must not be nil"))
	}
	return err
}
