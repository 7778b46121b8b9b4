package storage

import (
	"fmt"

	"github.com/emberdb/ember/internal/types"
)

// EncodingType selects the column encoding applied by the chunk encoder.
type EncodingType int

const (
	Unencoded EncodingType = iota
	Dictionary
	RunLength
)

func (e EncodingType) String() string {
	switch e {
	case Unencoded:
		return "Unencoded"
	case Dictionary:
		return "Dictionary"
	case RunLength:
		return "RunLength"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// EncodeChunk re-encodes every column of a chunk. Already-encoded columns
// are left alone. The chunk must no longer accept appends.
func EncodeChunk(chunk *Chunk, encoding EncodingType) {
	for i := 0; i < chunk.ColumnCount(); i++ {
		id := types.ColumnID(i)
		source, ok := chunk.Column(id).(*ValueColumn)
		if !ok {
			continue
		}
		switch encoding {
		case Dictionary:
			chunk.replaceColumn(id, NewDictionaryColumn(source))
		case RunLength:
			chunk.replaceColumn(id, NewRunLengthColumn(source))
		case Unencoded:
		}
	}
}

// EncodeAllChunks re-encodes every full chunk of a table with the given
// encoding. The
// mutable tail chunk is skipped so appends keep working.
func EncodeAllChunks(t *Table, encoding EncodingType) {
	for i := 0; i < t.ChunkCount(); i++ {
		chunk := t.Chunk(types.ChunkID(i))
		if !chunk.Full() {
			continue
		}
		EncodeChunk(chunk, encoding)
	}
}
