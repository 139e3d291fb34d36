package bitmap

import (
	"fmt"
	"sort"
)

// Iterator walks the doc-ids held in a set in ascending order.
type Iterator interface {
	// Next advances the iterator. It returns false when exhausted.
	Next() (bool, error)

	// DocID returns the doc-id the iterator currently points at.
	DocID() (uint32, error)
}

// RoaringBitmapIterator implements Iterator over a RoaringBitmap's containers.
type RoaringBitmapIterator struct {
	bitmap       *RoaringBitmap
	keys         []uint16
	currentKey   int
	container    RoaringContainer
	currentDocID uint32
	index        int
}

// Iterator returns an ascending Iterator over rb's doc-ids.
func (rb *RoaringBitmap) Iterator() Iterator {
	keys := make([]uint16, 0, len(rb.containers))
	for key := range rb.containers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return &RoaringBitmapIterator{
		bitmap:     rb,
		keys:       keys,
		currentKey: -1,
		index:      -1,
	}
}

// Next advances to the next document ID in the bitmap.
func (it *RoaringBitmapIterator) Next() (bool, error) {
	for {
		if it.container == nil || it.index >= it.container.Cardinality()-1 {
			it.currentKey++
			if it.currentKey >= len(it.keys) {
				return false, nil
			}
			key := it.keys[it.currentKey]
			it.container = it.bitmap.containers[key]
			it.index = -1
		}

		it.index++
		if it.index < it.container.Cardinality() {
			docID, err := it.docIDAt(it.index)
			if err != nil {
				return false, err
			}
			it.currentDocID = docID
			return true, nil
		}
	}
}

func (it *RoaringBitmapIterator) docIDAt(index int) (uint32, error) {
	base := uint32(it.keys[it.currentKey]) << 16
	switch c := it.container.(type) {
	case *ArrayContainer:
		return base | uint32(c.values[index]), nil
	case *BitmapContainer:
		count := 0
		for i, word := range c.Bitmap {
			for j := 0; j < 64; j++ {
				if word&(1<<j) != 0 {
					if count == index {
						return base | uint32(i*64+j), nil
					}
					count++
				}
			}
		}
	}
	return 0, fmt.Errorf("unknown container type %T", it.container)
}

// DocID returns the current document ID.
func (it *RoaringBitmapIterator) DocID() (uint32, error) {
	if it.currentKey < 0 || it.currentKey >= len(it.keys) {
		return 0, fmt.Errorf("invalid key while iterating container")
	}
	return it.docIDAt(it.index)
}
