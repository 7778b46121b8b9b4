package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/emberdb/ember/internal/types"
)

// nullCode marks NULL in the attribute vector.
const nullCode = ^uint32(0)

// DictionaryColumn stores a sorted dictionary of distinct values and an
// attribute vector of dictionary codes. String dictionaries keep their
// payload lz4-compressed and decompress lazily on first access.
type DictionaryColumn struct {
	dataType  types.DataType
	attribute []uint32

	// Non-string dictionaries are held directly.
	dictionary []types.Value

	// String dictionaries are held as an lz4 block plus offsets into the
	// decompressed heap.
	compressed   []byte
	rawSize      int
	offsets      []int
	decompressed []types.Value
	once         sync.Once
}

// NewDictionaryColumn builds a dictionary column from an unencoded one.
func NewDictionaryColumn(source *ValueColumn) *DictionaryColumn {
	distinct := make(map[string]types.Value)
	for _, v := range source.Values() {
		if v.IsNull() {
			continue
		}
		distinct[dictionaryKey(v)] = v
	}

	dictionary := make([]types.Value, 0, len(distinct))
	for _, v := range distinct {
		dictionary = append(dictionary, v)
	}
	sort.Slice(dictionary, func(i, j int) bool {
		return types.Compare(dictionary[i], dictionary[j]) < 0
	})

	codes := make(map[string]uint32, len(dictionary))
	for i, v := range dictionary {
		codes[dictionaryKey(v)] = uint32(i)
	}

	attribute := make([]uint32, 0, source.Size())
	for _, v := range source.Values() {
		if v.IsNull() {
			attribute = append(attribute, nullCode)
			continue
		}
		attribute = append(attribute, codes[dictionaryKey(v)])
	}

	col := &DictionaryColumn{dataType: source.DataType(), attribute: attribute}

	if source.DataType() == types.String {
		col.compressString(dictionary)
	} else {
		col.dictionary = dictionary
	}

	return col
}

func dictionaryKey(v types.Value) string {
	return fmt.Sprintf("%T:%v", v.Data, v.Data)
}

// compressString packs the dictionary strings into one heap and compresses
// it with lz4.
func (c *DictionaryColumn) compressString(dictionary []types.Value) {
	var heap []byte
	offsets := make([]int, 0, len(dictionary)+1)
	for _, v := range dictionary {
		offsets = append(offsets, len(heap))
		s, _ := v.AsString()
		heap = append(heap, s...)
	}
	offsets = append(offsets, len(heap))

	buf := make([]byte, lz4.CompressBlockBound(len(heap)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(heap, buf)
	if err != nil || n == 0 || n >= len(heap) {
		// Incompressible dictionaries are stored as-is with n == rawSize.
		buf = append(buf[:0], heap...)
		n = len(heap)
	}

	c.compressed = buf[:n]
	c.rawSize = len(heap)
	c.offsets = offsets
}

func (c *DictionaryColumn) stringDictionary() []types.Value {
	c.once.Do(func() {
		heap := c.compressed
		if len(c.compressed) != c.rawSize {
			heap = make([]byte, c.rawSize)
			if _, err := lz4.UncompressBlock(c.compressed, heap); err != nil {
				panic(fmt.Sprintf("dictionary heap corrupted: %v", err))
			}
		}
		dict := make([]types.Value, len(c.offsets)-1)
		for i := range dict {
			dict[i] = types.NewValue(string(heap[c.offsets[i]:c.offsets[i+1]]))
		}
		c.decompressed = dict
	})
	return c.decompressed
}

// Dictionary returns the sorted distinct values.
func (c *DictionaryColumn) Dictionary() []types.Value {
	if c.dataType == types.String {
		return c.stringDictionary()
	}
	return c.dictionary
}

// DataType returns the column's type tag.
func (c *DictionaryColumn) DataType() types.DataType {
	return c.dataType
}

// Size returns the number of rows.
func (c *DictionaryColumn) Size() int {
	return len(c.attribute)
}

// Value returns the value at the given offset.
func (c *DictionaryColumn) Value(offset types.ChunkOffset) types.Value {
	code := c.attribute[offset]
	if code == nullCode {
		return types.NewNullValue()
	}
	return c.Dictionary()[code]
}

// Code returns the dictionary code at the given offset and whether the row
// is non-null.
func (c *DictionaryColumn) Code(offset types.ChunkOffset) (uint32, bool) {
	code := c.attribute[offset]
	if code == nullCode {
		return 0, false
	}
	return code, true
}

// CodeOf returns the dictionary code of a value, or ok=false when the value
// is not in the dictionary.
func (c *DictionaryColumn) CodeOf(v types.Value) (uint32, bool) {
	dict := c.Dictionary()
	i := sort.Search(len(dict), func(i int) bool {
		return types.Compare(dict[i], v) >= 0
	})
	if i < len(dict) && types.Compare(dict[i], v) == 0 {
		return uint32(i), true
	}
	return 0, false
}

// LowerBoundCode returns the code of the first dictionary entry >= v.
func (c *DictionaryColumn) LowerBoundCode(v types.Value) uint32 {
	dict := c.Dictionary()
	return uint32(sort.Search(len(dict), func(i int) bool {
		return types.Compare(dict[i], v) >= 0
	}))
}

// CompressedSize returns the lz4 payload size for string dictionaries and 0
// otherwise.
func (c *DictionaryColumn) CompressedSize() int {
	return len(c.compressed)
}
