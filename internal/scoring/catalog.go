package scoring

import (
	"slices"
	"sync/atomic"
)

type catalogState struct {
	indicators []Indicator
	config     Config
}

// Catalog holds the indicator checklist and thresholds in force. It is
// replaced as a whole on reload; readers never see a half-applied change.
type Catalog struct {
	state atomic.Pointer[catalogState]
}

// NewCatalog validates and installs the initial checklist.
func NewCatalog(indicators []Indicator, cfg Config) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(indicators, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace validates then swaps in a new checklist and config.
func (c *Catalog) Replace(indicators []Indicator, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ValidateIndicators(indicators); err != nil {
		return err
	}
	c.state.Store(&catalogState{indicators: slices.Clone(indicators), config: cfg})
	return nil
}

// Indicators returns a copy of the current checklist.
func (c *Catalog) Indicators() []Indicator {
	return slices.Clone(c.state.Load().indicators)
}

func (c *Catalog) Config() Config {
	return c.state.Load().config
}
