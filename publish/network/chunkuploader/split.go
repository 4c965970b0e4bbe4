package chunkuploader

// Segment is a contiguous byte range of a file.
type Segment struct {
	Index  int
	Offset int64
	Length int64
}

// NumChunks returns ceil(fileSize / chunkSize).
func NumChunks(fileSize, chunkSize int64) int {
	if fileSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((fileSize + chunkSize - 1) / chunkSize)
}

// Split partitions a file of fileSize bytes into ordered chunkSize segments.
// The last segment holds the remainder, or a full chunk when the size is divisible.
func Split(fileSize, chunkSize int64) []Segment {
	n := NumChunks(fileSize, chunkSize)
	segments := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		offset := int64(i) * chunkSize
		length := chunkSize
		if offset+length > fileSize {
			length = fileSize - offset
		}
		segments = append(segments, Segment{Index: i, Offset: offset, Length: length})
	}
	return segments
}
