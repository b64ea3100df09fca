package repository

// inBatches calls fn for consecutive [lo, hi) windows of at most size items.
func inBatches(n, size int, fn func(lo, hi int) error) error {
	if size <= 0 {
		size = n
	}
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		if err := fn(i, end); err != nil {
			return err
		}
	}
	return nil
}
