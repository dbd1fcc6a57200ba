package filter

import "slices"

// DefaultCullThreshold keeps FIDs 0..99.
const DefaultCullThreshold = 100

// Cull removes every record whose FID is >= threshold and returns the kept
// records with the number removed. It walks from the end so index-based
// removal never skips a neighbour. Records without a numeric FID are kept.
// The input slice is reused.
func Cull(records []Record, threshold float64) ([]Record, int) {
	removed := 0
	for i := len(records) - 1; i >= 0; i-- {
		fid, ok := records[i].Number(FieldFID)
		if ok && fid >= threshold {
			records = slices.Delete(records, i, i+1)
			removed++
		}
	}
	return records, removed
}
