package reconcile

import "github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"

// MergeValues combines the latest stored values with an incoming set, field
// by field. When both sides carry a value the result is their weighted
// average; when only one does, that value passes through unchanged.
func MergeValues(latest, incoming domain.Values, latestWeight, incomingWeight int64) domain.Values {
	var out domain.Values
	for _, f := range domain.Fields {
		out.Set(f, mergeField(latest.Get(f), incoming.Get(f), latestWeight, incomingWeight))
	}
	return out
}

func mergeField(latest, incoming *float64, wl, wi int64) *float64 {
	switch {
	case latest != nil && incoming != nil:
		total := wl + wi
		if total == 0 {
			return nil
		}
		v := (*latest*float64(wl) + *incoming*float64(wi)) / float64(total)
		return &v
	case latest != nil:
		return latest
	case incoming != nil:
		return incoming
	}
	return nil
}
