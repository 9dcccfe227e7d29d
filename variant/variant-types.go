// GenomicsDB variant combiner: a high-performance engine for merging
// genomic variant calls across samples.
// Copyright (c) 2020-2022 the GenomicsDB authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/jackgoldsmith4/GenomicsDB/blob/master/LICENSE.txt>.

package variant

import (
	"log"
	"math"

	"github.com/willf/bitset"

	"github.com/jackgoldsmith4/GenomicsDB/utils"
)

// ElementType is an enumeration type for the element types of queried
// field values.
type ElementType uint8

// The supported field element types.
const (
	InvalidElement ElementType = iota
	Int32Element
	Int64Element
	Uint32Element
	Uint64Element
	Float32Element
	Float64Element
	CharElement
	StringElement
)

var elementTypeNames = []string{"invalid", "int32", "int64", "uint32", "uint64", "float32", "float64", "char", "string"}

func (t ElementType) String() string {
	if int(t) < len(elementTypeNames) {
		return elementTypeNames[t]
	}
	return "unknown"
}

// Missing values per element type. The integer and float sentinels
// follow the BCF conventions for missing data.
const (
	MissingInt32  int32  = math.MinInt32
	MissingInt64  int64  = math.MinInt32
	MissingUint32 uint32 = 0x80000000
	MissingUint64 uint64 = 0x80000000
	MissingChar   byte   = '\x00'
	MissingString string = ""
)

var (
	MissingFloat32 = math.Float32frombits(0x7f800001)
	MissingFloat64 = math.Float64frombits(0x7ff0000000000001)
)

// Element is the closed set of types a field value container can hold.
type Element interface {
	int32 | int64 | uint32 | uint64 | float32 | float64 | byte | string
}

// A Value is a typed container for one call's values of one queried
// field.
type Value interface {
	ElementType() ElementType
	Len() int
	Resize(n int)
	clone() Value
}

// Values is the concrete Value container for element type T.
type Values[T Element] struct {
	Data []T
}

// NewValues wraps the given slice in a Value container.
func NewValues[T Element](data []T) *Values[T] {
	return &Values[T]{Data: data}
}

func elementTypeFor[T Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32Element
	case int64:
		return Int64Element
	case uint32:
		return Uint32Element
	case uint64:
		return Uint64Element
	case float32:
		return Float32Element
	case float64:
		return Float64Element
	case byte:
		return CharElement
	case string:
		return StringElement
	}
	return InvalidElement
}

// ElementType returns the element type tag for T.
func (v *Values[T]) ElementType() ElementType {
	return elementTypeFor[T]()
}

// Len returns the number of elements.
func (v *Values[T]) Len() int {
	return len(v.Data)
}

// Resize sets the number of elements to n, preserving existing
// elements up to n.
func (v *Values[T]) Resize(n int) {
	if n <= cap(v.Data) {
		v.Data = v.Data[:n]
		return
	}
	data := make([]T, n)
	copy(data, v.Data)
	v.Data = data
}

func (v *Values[T]) clone() Value {
	data := make([]T, len(v.Data))
	copy(data, v.Data)
	return &Values[T]{Data: data}
}

// Commonly used field identifiers.
var (
	END = utils.Intern("END")
	GT  = utils.Intern("GT")
)

// A Call is one sample's contribution at a position. Fields is
// indexed by query field index; a nil entry means the sample did not
// provide that field.
type Call struct {
	Pos    int64
	Ref    string
	Alt    []string
	Info   utils.SmallMap // END and other per-call entries
	Fields []Value
}

// End returns the last reference position covered by the call,
// determined either by the END info entry or by len(c.Ref).
func (c *Call) End() int64 {
	if end, ok := c.Info.Get(END); ok {
		switch e := end.(type) {
		case int64:
			return e
		default:
			log.Panicf("invalid END value %v", end)
		}
	}
	return c.Pos + int64(len(c.Ref)) - 1
}

// A Variant is the set of calls considered together at one position.
// Ref and Alt are the common merged alleles; they are set on combined
// records produced by a Combiner and empty on input records.
type Variant struct {
	Pos   int64
	Ref   string
	Alt   []string
	Calls []Call
	valid *bitset.BitSet
}

// NewVariant creates a variant at the given position with room for
// numCalls sample rows, all initially marked absent.
func NewVariant(pos int64, numCalls int) *Variant {
	return &Variant{
		Pos:   pos,
		Calls: make([]Call, numCalls),
		valid: bitset.New(uint(numCalls)),
	}
}

// SetCall installs a call for the given sample row and marks it valid.
func (v *Variant) SetCall(index int, call Call) {
	v.Calls[index] = call
	v.valid.Set(uint(index))
}

// IsValid tells whether the given sample row contributes a call.
func (v *Variant) IsValid(index int) bool {
	return v.valid.Test(uint(index))
}

// NumValidCalls returns the number of sample rows that contribute a
// call.
func (v *Variant) NumValidCalls() int {
	return int(v.valid.Count())
}

// EachValidCall calls f for every valid call, in sample row order,
// skipping absent samples.
func (v *Variant) EachValidCall(f func(index int, call *Call)) {
	for index, ok := v.valid.NextSet(0); ok; index, ok = v.valid.NextSet(index + 1) {
		f(int(index), &v.Calls[index])
	}
}

func (v *Variant) clone() *Variant {
	result := &Variant{
		Pos:   v.Pos,
		Ref:   v.Ref,
		Alt:   append([]string(nil), v.Alt...),
		Calls: make([]Call, len(v.Calls)),
		valid: v.valid.Clone(),
	}
	v.EachValidCall(func(index int, call *Call) {
		clonedCall := *call
		clonedCall.Fields = make([]Value, len(call.Fields))
		for i, field := range call.Fields {
			if field != nil {
				clonedCall.Fields[i] = field.clone()
			}
		}
		result.Calls[index] = clonedCall
	})
	return result
}
