package repositories

import (
	"github.com/shopspring/decimal"
)

// ListOptions bounds list queries. A zero Limit means no limit.
type ListOptions struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// ProfileQuery is the filter used by FindProfiles. Both bounds are strict.
type ProfileQuery struct {
	MinAge     int             `json:"min_age"`
	MaxBalance decimal.Decimal `json:"max_balance"`
}

// Clamp applies the default and maximum page sizes
func (o ListOptions) Clamp(cfg QueryConfig) ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && o.Limit > cfg.MaxLimit {
		o.Limit = cfg.MaxLimit
	}
	return o
}
