package shipping

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Option is one priced delivery choice.
type Option struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	DeliveryTime string          `json:"delivery_time,omitempty"`
	Selected     bool            `json:"selected"`
	Fallback     bool            `json:"fallback,omitempty"`
}

// RateSet holds the options from the latest resolution for a session.
type RateSet struct {
	// resolving serializes Refresh calls; mu guards the fields below.
	resolving sync.Mutex
	mu        sync.Mutex
	options []Option
	warning string
}

func NewRateSet() *RateSet {
	return &RateSet{}
}

// Replace swaps in a freshly resolved result.
func (r *RateSet) Replace(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result == nil {
		r.options = nil
		r.warning = ""
		return
	}
	r.options = append([]Option(nil), result.Options...)
	r.warning = result.Warning
}

// Refresh runs resolve and stores its result under the resolution lock. A second
// refresh waits for the first to finish, so a slow resolution can never overwrite
// a newer one. A failed resolution leaves the set unchanged.
func (r *RateSet) Refresh(resolve func() (*Result, error)) (*Result, error) {
	r.resolving.Lock()
	defer r.resolving.Unlock()
	result, err := resolve()
	if err != nil {
		return nil, err
	}
	r.Replace(result)
	return result, nil
}

// Select marks optionID as the only selected option. An unknown id leaves the set unchanged.
func (r *RateSet) Select(optionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	match := -1
	for i, opt := range r.options {
		if opt.ID == optionID {
			match = i
			break
		}
	}
	if match < 0 {
		return false
	}
	for i := range r.options {
		r.options[i].Selected = i == match
	}
	return true
}

// Selected returns the currently selected option.
func (r *RateSet) Selected() (Option, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range r.options {
		if opt.Selected {
			return opt, true
		}
	}
	return Option{}, false
}

func (r *RateSet) Options() []Option {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Option(nil), r.options...)
}

func (r *RateSet) Warning() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warning
}

// rankOptions orders by ascending price, keeping carrier order for ties, and
// selects the default option or the cheapest.
func rankOptions(options []Option, defaultID string) []Option {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Price.LessThan(options[j].Price)
	})
	selected := 0
	for i, opt := range options {
		if defaultID != "" && opt.ID == defaultID {
			selected = i
			break
		}
	}
	for i := range options {
		options[i].Selected = i == selected
	}
	return options
}
