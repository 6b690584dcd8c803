package chunker

import (
	"errors"
	"sort"

	"github.com/pyropy/bufwriter/core/model"
)

var (
	ErrChunkGap     = errors.New("chunks leave a gap")
	ErrChunkOverlap = errors.New("chunks overlap")
)

// NumChunks returns number of chunks payload of given size splits into
func NumChunks(payloadSize, chunkSize int) int {
	if chunkSize <= 0 {
		return 0
	}

	return (payloadSize + (chunkSize - 1)) / chunkSize
}

// Split cuts payload into chunkSize pieces tagged with their offset.
// Last chunk may be shorter. Chunks reference payload memory, they are not copies.
func Split(payload []byte, chunkSize int) []model.Chunk {
	chunks := make([]model.Chunk, 0, NumChunks(len(payload), chunkSize))
	if chunkSize <= 0 {
		return chunks
	}

	for offset := 0; offset < len(payload); offset += chunkSize {
		end := offset + chunkSize
		if end > len(payload) {
			end = len(payload)
		}

		chunks = append(chunks, model.Chunk{
			Offset: uint32(offset),
			Data:   payload[offset:end:end],
		})
	}

	return chunks
}

// Join reassembles payload from chunks in any order. Chunks must cover
// [0, total) without gaps or overlaps.
func Join(chunks []model.Chunk) ([]byte, error) {
	sorted := make([]model.Chunk, len(chunks))
	copy(sorted, chunks)
	SortByOffset(sorted)

	payload := make([]byte, 0)
	for _, c := range sorted {
		switch {
		case c.Offset > uint32(len(payload)):
			return nil, ErrChunkGap
		case c.Offset < uint32(len(payload)):
			return nil, ErrChunkOverlap
		}

		payload = append(payload, c.Data...)
	}

	return payload, nil
}

// SortByOffset orders chunks in place by ascending offset
func SortByOffset(chunks []model.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Offset < chunks[j].Offset
	})
}
