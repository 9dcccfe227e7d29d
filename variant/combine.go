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
)

// A Combiner merges the calls of one variant at a time into a
// combined record with merged alleles and remapped field values. A
// Combiner holds per-position state and must not be shared between
// goroutines; variants at different positions can be combined in
// parallel by giving each goroutine its own Combiner.
type Combiner struct {
	config       *QueryConfig
	table        *AlleleTable
	mergedRef    string
	mergedAlt    []string
	nonRefExists bool

	// ValidateRefPrefix enables the reference prefix invariant check
	// during reference merging. It is on by default; callers can
	// trade the check for speed on inputs they trust.
	ValidateRefPrefix bool
}

// NewCombiner creates a combiner for the given query configuration
// and number of sample rows.
func NewCombiner(config *QueryConfig, numCalls int) *Combiner {
	return &Combiner{
		config:            config,
		table:             NewAlleleTable(numCalls),
		ValidateRefPrefix: true,
	}
}

// Clear resets the per-position state so the combiner can be reused
// for the next position.
func (c *Combiner) Clear() {
	c.table.Reset()
	c.mergedRef = ""
	c.mergedAlt = nil
	c.nonRefExists = false
}

// mergeAlleles computes the merged reference and alt alleles and
// populates the allele table.
func (c *Combiner) mergeAlleles(v *Variant) error {
	ModifyReferenceIfInMiddle(v)
	mergedRef, err := MergeReference(v, c.ValidateRefPrefix)
	if err != nil {
		return err
	}
	c.mergedRef = mergedRef
	c.table.ResizeIfNeeded(len(v.Calls), initialAlleleCapacity)
	c.mergedAlt, c.nonRefExists = MergeAltAlleles(v, c.mergedRef, c.table)
	return nil
}

// Combine merges the valid calls of the given variant into a new
// combined record. The input variant's field values are left
// untouched; allele-dependent and genotype-dependent fields are
// remapped into the combined record's own storage, all other fields
// are carried over unchanged. The merged reference and alt alleles
// are installed as the combined record's common Ref and Alt fields.
func (c *Combiner) Combine(v *Variant) (*Variant, error) {
	c.Clear()
	if err := c.mergeAlleles(v); err != nil {
		return nil, err
	}
	combined := v.clone()
	numMergedAlleles := len(c.mergedAlt) + 1 // +1 for the reference allele
	for fieldIndex, info := range c.config.Fields {
		switch {
		case info.AlleleDependent() || info.GenotypeDependent():
			numElements := info.numElements(numMergedAlleles)
			validCounts := make([]int, numElements)
			switch info.Type {
			case Int32Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingInt32)
			case Int64Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingInt64)
			case Uint32Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingUint32)
			case Uint64Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingUint64)
			case Float32Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingFloat32)
			case Float64Element:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingFloat64)
			case CharElement:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingChar)
			case StringElement:
				remapField(c, v, combined, fieldIndex, numElements, numMergedAlleles, validCounts, MissingString)
			default:
				log.Printf("unhandled element type %v for queried field %v (%v); skipping this field", info.Type, fieldIndex, *info.ID)
			}
		case fieldIndex == c.config.gtIndex:
			combined.EachValidCall(func(callIndex int, call *Call) {
				field := call.Fields[fieldIndex]
				if field == nil {
					return
				}
				input := typedData[int32](v, callIndex, fieldIndex)
				output := field.(*Values[int32]).Data
				RemapGenotypeCalls(input, output, c.table, callIndex)
			})
		}
	}
	combined.Ref = c.mergedRef
	combined.Alt = c.mergedAlt
	// the combined record owns the merged alleles now
	c.mergedRef = ""
	c.mergedAlt = nil
	return combined, nil
}

// typedData returns the data slice of the given queried field of the
// given call, which must hold elements of type T.
func typedData[T Element](v *Variant, callIndex, fieldIndex int) []T {
	field := v.Calls[callIndex].Fields[fieldIndex]
	values, ok := field.(*Values[T])
	if !ok {
		log.Panicf("element type mismatch for field %v of call %v", fieldIndex, callIndex)
	}
	return values.Data
}

// remapField remaps one allele-dependent or genotype-dependent field
// for every valid call, reading from the original variant and writing
// in place into the combined record.
func remapField[T Element](c *Combiner, original, combined *Variant, fieldIndex, numElements, numMergedAlleles int, validCounts []int, missing T) {
	info := c.config.Fields[fieldIndex]
	dest := NewVariantDestination[T](combined, fieldIndex)
	combined.EachValidCall(func(callIndex int, call *Call) {
		field := call.Fields[fieldIndex]
		if field == nil {
			return
		}
		field.Resize(numElements)
		input := typedData[T](original, callIndex, fieldIndex)
		if info.GenotypeDependent() {
			RemapGenotypeValues(input, callIndex, c.table, numMergedAlleles, c.nonRefExists, dest, validCounts, missing)
		} else {
			RemapAlleleValues(input, callIndex, c.table, numMergedAlleles, c.nonRefExists, info.AltAllelesOnly(), dest, validCounts, missing)
		}
	})
}
