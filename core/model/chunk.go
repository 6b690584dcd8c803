package model

// Chunk is a contiguous piece of the payload placed at Offset in the target account
type Chunk struct {
	Offset uint32
	Data   []byte
}

// End returns offset right after the last byte of the chunk
func (c Chunk) End() uint32 {
	return c.Offset + uint32(len(c.Data))
}
