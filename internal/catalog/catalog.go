// Package catalog holds the static instrument universe: each logical index
// name mapped to the feed keys of its underlying and option legs, plus the
// strike geometry needed to resolve at-the-money contracts and weekly
// expiry dates.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

var (
	// ErrUnknownInstrument is returned when a name is not in the catalog.
	ErrUnknownInstrument = errors.New("catalog: unknown instrument")

	// ErrUnknownKey is returned when a feed key maps to no catalog leg.
	ErrUnknownKey = errors.New("catalog: feed key not in subscription set")
)

// LegRef resolves a feed key back to the (instrument, leg) it prices.
type LegRef struct {
	Instrument model.Instrument
	Leg        model.Leg
}

// Catalog is the immutable instrument table. Built once at startup.
type Catalog struct {
	instruments []model.Instrument
	byName      map[string]model.Instrument
	byKey       map[string]LegRef
}

// New builds a catalog from a static instrument list.
// Duplicate names or feed keys are a configuration error.
func New(instruments []model.Instrument) (*Catalog, error) {
	c := &Catalog{
		instruments: make([]model.Instrument, len(instruments)),
		byName:      make(map[string]model.Instrument, len(instruments)),
		byKey:       make(map[string]LegRef, len(instruments)*3),
	}
	copy(c.instruments, instruments)

	for _, inst := range instruments {
		if _, dup := c.byName[inst.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate instrument %s", inst.Name)
		}
		c.byName[inst.Name] = inst

		for _, leg := range []model.Leg{model.LegUnderlying, model.LegCall, model.LegPut} {
			key := inst.LegKey(leg)
			if key == "" {
				return nil, fmt.Errorf("catalog: instrument %s missing %s key", inst.Name, leg)
			}
			if _, dup := c.byKey[key]; dup {
				return nil, fmt.Errorf("catalog: duplicate feed key %s", key)
			}
			c.byKey[key] = LegRef{Instrument: inst, Leg: leg}
		}
	}
	return c, nil
}

// Default returns the built-in index universe.
func Default() *Catalog {
	c, err := New([]model.Instrument{
		{
			Name:           "NIFTY",
			UnderlyingKey:  "NSE:NIFTY50",
			CallKey:        "NFO:NIFTY:CE",
			PutKey:         "NFO:NIFTY:PE",
			Exchange:       "NSE",
			OptionExchange: "NFO",
			StrikeInterval: 50,
			ExpiryWeekday:  time.Thursday,
		},
		{
			Name:           "BANKNIFTY",
			UnderlyingKey:  "NSE:BANKNIFTY",
			CallKey:        "NFO:BANKNIFTY:CE",
			PutKey:         "NFO:BANKNIFTY:PE",
			Exchange:       "NSE",
			OptionExchange: "NFO",
			StrikeInterval: 100,
			ExpiryWeekday:  time.Thursday,
		},
		{
			Name:           "SENSEX",
			UnderlyingKey:  "BSE:SENSEX",
			CallKey:        "BFO:SENSEX:CE",
			PutKey:         "BFO:SENSEX:PE",
			Exchange:       "BSE",
			OptionExchange: "BFO",
			StrikeInterval: 500,
			ExpiryWeekday:  time.Thursday,
		},
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return c
}

// Instruments returns the instrument list in catalog order.
func (c *Catalog) Instruments() []model.Instrument {
	out := make([]model.Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// Lookup returns the instrument with the given name.
func (c *Catalog) Lookup(name string) (model.Instrument, error) {
	inst, ok := c.byName[name]
	if !ok {
		return model.Instrument{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
	}
	return inst, nil
}

// Resolve maps a feed key to the (instrument, leg) it belongs to.
// Used by the feed manager on every inbound tick.
func (c *Catalog) Resolve(key string) (LegRef, error) {
	ref, ok := c.byKey[key]
	if !ok {
		return LegRef{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return ref, nil
}

// Keys returns every feed subscription key across all instruments and legs.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.byKey))
	for _, inst := range c.instruments {
		keys = append(keys, inst.UnderlyingKey, inst.CallKey, inst.PutKey)
	}
	return keys
}

// ATMStrike rounds an underlying price to the nearest strike for the
// instrument's strike interval.
func ATMStrike(inst model.Instrument, underlying decimal.Decimal) int64 {
	interval := decimal.NewFromInt(inst.StrikeInterval)
	return underlying.Div(interval).Round(0).Mul(interval).IntPart()
}

// NextExpiry returns the next weekly expiry date for the instrument at or
// after the given time. A day that is itself the expiry weekday counts as
// the expiry date.
func NextExpiry(inst model.Instrument, now time.Time) time.Time {
	daysAhead := (int(inst.ExpiryWeekday) - int(now.Weekday()) + 7) % 7
	expiry := now.AddDate(0, 0, daysAhead)
	return time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, now.Location())
}

// IsExpiryDay reports whether the given time falls on the instrument's
// weekly expiry date. Expiry day selects the aggressive rule set.
func IsExpiryDay(inst model.Instrument, now time.Time) bool {
	return now.Weekday() == inst.ExpiryWeekday
}
