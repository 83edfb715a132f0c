// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"fmt"
	"math/bits"
)

// Bits represents a bit set
type Bits []byte

// NewBits creates a new empty bit set
func NewBits() Bits {
	return make(Bits, 0)
}

// NewSlots creates a bit set with a fixed capacity of count bits, all unset.
// Session slot maps use this form so their wire size is stable.
func NewSlots(count int) Bits {
	return make(Bits, (count+7)/8)
}

// Add adds an index to the bit set
func (b *Bits) Add(i int) {
	if i < 0 {
		return
	}
	byteIndex := i / 8
	bitIndex := i % 8

	// Grow slice if needed
	for len(*b) <= byteIndex {
		*b = append(*b, 0)
	}

	(*b)[byteIndex] |= 1 << uint(bitIndex) //nolint:gosec // bitIndex is always 0-7
}

// Contains returns true if the bit set contains the index
func (b Bits) Contains(i int) bool {
	if i < 0 {
		return false
	}
	byteIndex := i / 8
	if byteIndex >= len(b) {
		return false
	}
	bitIndex := i % 8
	return (b[byteIndex] & (1 << uint(bitIndex))) != 0 //nolint:gosec // bitIndex is always 0-7
}

// BitLen returns the number of bits that can be represented (capacity)
func (b Bits) BitLen() int {
	return len(b) * 8
}

// Len returns the number of set bits
func (b Bits) Len() int {
	count := 0
	for _, byte := range b {
		count += bits.OnesCount8(byte)
	}
	return count
}

// Equal returns true if two bit sets are equal
func (b Bits) Equal(other Bits) bool {
	if len(b) != len(other) {
		// Normalize lengths by trimming trailing zeros
		b = b.trim()
		other = other.trim()
		if len(b) != len(other) {
			return false
		}
	}

	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// trim removes trailing zero bytes
func (b Bits) trim() Bits {
	i := len(b) - 1
	for i >= 0 && b[i] == 0 {
		i--
	}
	return b[:i+1]
}

// String returns a string representation of the bit set
func (b Bits) String() string {
	if len(b) == 0 {
		return "{}"
	}

	indices := make([]int, 0, b.Len())
	for i := 0; i < b.BitLen(); i++ {
		if b.Contains(i) {
			indices = append(indices, i)
		}
	}

	return fmt.Sprintf("%v", indices)
}
