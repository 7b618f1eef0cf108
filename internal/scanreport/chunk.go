package scanreport

// DefaultBatchSize bounds the id__in list of one lookup request.
const DefaultBatchSize = 100

// ChunkIDs removes duplicates (first occurrence wins) and cuts the result
// into consecutive batches of at most size ids.  No batch is empty and an
// empty input yields no batches.  size < 1 puts every id in one batch.
func ChunkIDs(ids []int, size int) [][]int {
	seen := make(map[int]struct{}, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return nil
	}
	if size < 1 {
		return [][]int{uniq}
	}

	out := make([][]int, 0, (len(uniq)+size-1)/size)
	for start := 0; start < len(uniq); start += size {
		end := min(start+size, len(uniq))
		out = append(out, uniq[start:end:end])
	}
	return out
}
