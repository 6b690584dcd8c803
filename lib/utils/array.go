package utils

// Batch splits arr into consecutive batches of at most size elements.
// Last batch may be shorter. Returned batches share memory with arr.
func Batch[T any](arr []T, size int) [][]T {
	if size <= 0 || len(arr) == 0 {
		return [][]T{}
	}

	batches := make([][]T, 0, (len(arr)+size-1)/size)
	for offset := 0; offset < len(arr); offset += size {
		end := offset + size
		if end > len(arr) {
			end = len(arr)
		}

		batches = append(batches, arr[offset:end:end])
	}

	return batches
}
