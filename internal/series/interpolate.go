// Package series post-processes retrieved batches of readings.
package series

import "github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"

// Interpolate fills null fields of interior readings with the mean of the
// same field in the readings directly before and after, in batch order.
//
// Neighbours are read from the batch as it was passed in, so a run of
// consecutive nulls is not chained: a null next to another null stays null.
// The first and last readings are never touched. The input is not modified.
func Interpolate(batch []domain.Reading) []domain.Reading {
	out := make([]domain.Reading, len(batch))
	for i, r := range batch {
		out[i] = r
		out[i].Values = r.Values.Clone()
	}
	if len(batch) < 3 {
		return out
	}

	for i := 1; i < len(batch)-1; i++ {
		for _, f := range domain.Fields {
			if batch[i].Values.Get(f) != nil {
				continue
			}
			prev, next := batch[i-1].Values.Get(f), batch[i+1].Values.Get(f)
			if prev == nil || next == nil {
				continue
			}
			mean := (*prev + *next) / 2
			out[i].Values.Set(f, &mean)
		}
	}
	return out
}
