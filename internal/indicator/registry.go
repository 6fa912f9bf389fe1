package indicator

import (
	"slices"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Registry holds the indicators an Engine computes, in registration order.
// It is filled once at construction and read afterwards, so it is not
// guarded.
type Registry struct {
	indicators []Indicator
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds ind. Names are unique.
func (r *Registry) Register(ind Indicator) error {
	if ind == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "cannot register a nil indicator")
	}

	if _, ok := r.lookup(ind.Name()); ok {
		return errors.Newf(errors.ErrCodeInvalidConfig, "indicator %s already registered", ind.Name())
	}

	r.indicators = append(r.indicators, ind)

	return nil
}

func (r *Registry) Get(name types.IndicatorType) (Indicator, error) {
	ind, ok := r.lookup(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "indicator %s not registered", name)
	}

	return ind, nil
}

// Names lists the registered indicators in registration order.
func (r *Registry) Names() []types.IndicatorType {
	names := make([]types.IndicatorType, len(r.indicators))
	for i, ind := range r.indicators {
		names[i] = ind.Name()
	}

	return names
}

func (r *Registry) lookup(name types.IndicatorType) (Indicator, bool) {
	i := slices.IndexFunc(r.indicators, func(ind Indicator) bool {
		return ind.Name() == name
	})
	if i < 0 {
		return nil, false
	}

	return r.indicators[i], true
}
