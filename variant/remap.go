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

// GenotypeIndex returns the canonical index of the unordered allele
// pair (a,b) in a genotype-indexed field.
func GenotypeIndex(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a + b*(b+1)/2
}

// GenotypeCount returns the number of unordered allele pairs over the
// given number of alleles.
func GenotypeCount(numAlleles int) int {
	return numAlleles * (numAlleles + 1) / 2
}

// A Destination is a writable surface for remapped field values,
// addressed by sample row and slot index.
type Destination[T Element] interface {
	Slot(callIndex, slotIndex int) *T
}

// A Matrix is a dense buffer-backed destination. Each row corresponds
// to an allele or genotype slot, each column to a sample row.
type Matrix[T Element] struct {
	rows [][]T
}

// NewMatrix creates a matrix with the given dimensions, with every
// slot set to init.
func NewMatrix[T Element](numSlots, numCalls int, init T) *Matrix[T] {
	rows := make([][]T, numSlots)
	for i := range rows {
		row := make([]T, numCalls)
		for j := range row {
			row[j] = init
		}
		rows[i] = row
	}
	return &Matrix[T]{rows: rows}
}

// Slot returns the address of the slot for the given sample row and
// slot index.
func (m *Matrix[T]) Slot(callIndex, slotIndex int) *T {
	return &m.rows[slotIndex][callIndex]
}

// Row returns the values of all sample rows for the given slot index.
func (m *Matrix[T]) Row(slotIndex int) []T {
	return m.rows[slotIndex]
}

// A VariantDestination writes remapped values in place into one
// queried field of a variant's calls. The field storage of each call
// must already be resized to the merged slot count before any writes.
type VariantDestination[T Element] struct {
	variant    *Variant
	fieldIndex int
}

// NewVariantDestination creates an in-place destination for the given
// queried field of the given variant.
func NewVariantDestination[T Element](v *Variant, fieldIndex int) VariantDestination[T] {
	return VariantDestination[T]{variant: v, fieldIndex: fieldIndex}
}

// Slot returns the address of the slot for the given sample row and
// slot index.
func (d VariantDestination[T]) Slot(callIndex, slotIndex int) *T {
	field := d.variant.Calls[callIndex].Fields[d.fieldIndex]
	values, ok := field.(*Values[T])
	if !ok {
		log.Panicf("element type mismatch for field %v of call %v", d.fieldIndex, callIndex)
	}
	return &values.Data[slotIndex]
}

// nonRefInputIndex returns the given sample's local index of the
// NonRef allele, or MissingIndex if the sample does not have it.
func nonRefInputIndex(table *AlleleTable, callIndex, numMergedAlleles int, nonRefExists bool) int {
	if !nonRefExists {
		return MissingIndex
	}
	// NonRef is always the last merged allele
	return table.InputIndex(callIndex, numMergedAlleles-1)
}

// RemapAlleleValues remaps one sample's allele-indexed field values
// to the merged allele order, writing one value per merged allele (or
// per merged alt allele when altAllelesOnly is set) into the
// destination. A merged allele with no local mapping falls back to
// the sample's NonRef values if the sample has the NonRef allele, and
// to the missing value otherwise. validCounts is incremented at every
// slot that receives an actual value.
func RemapAlleleValues[T Element](input []T, callIndex int, table *AlleleTable, numMergedAlleles int, nonRefExists, altAllelesOnly bool, dest Destination[T], validCounts []int, missing T) {
	inputNonRef := nonRefInputIndex(table, callIndex, numMergedAlleles, nonRefExists)
	length := numMergedAlleles
	if altAllelesOnly {
		length--
	}
	for j := 0; j < length; j++ {
		allele := j
		if altAllelesOnly {
			allele = j + 1
		}
		inputAllele := table.InputIndex(callIndex, allele)
		if IsMissingIndex(inputAllele) {
			if IsMissingIndex(inputNonRef) {
				*dest.Slot(callIndex, j) = missing
				continue
			}
			// the sample has NonRef, so use its values for the unlisted allele
			inputAllele = inputNonRef
		}
		// for alt-only fields the resolved local allele is never the reference
		inputIndex := inputAllele
		if altAllelesOnly {
			inputIndex = inputAllele - 1
		}
		*dest.Slot(callIndex, j) = input[inputIndex]
		validCounts[j]++
	}
}

// RemapGenotypeValues remaps one sample's genotype-indexed field
// values to the merged genotype order, writing one value per
// unordered merged allele pair into the destination. Each side of a
// pair resolves to a local allele index independently, with the same
// NonRef fallback as RemapAlleleValues; a pair with an unresolved
// side receives the missing value. validCounts is incremented at
// every slot that receives an actual value.
func RemapGenotypeValues[T Element](input []T, callIndex int, table *AlleleTable, numMergedAlleles int, nonRefExists bool, dest Destination[T], validCounts []int, missing T) {
	inputNonRef := nonRefInputIndex(table, callIndex, numMergedAlleles, nonRefExists)
	for j := 0; j < numMergedAlleles; j++ {
		inputJ := table.InputIndex(callIndex, j)
		if IsMissingIndex(inputJ) {
			if IsMissingIndex(inputNonRef) {
				// fill in missing values for all genotypes with j as one component
				for k := j; k < numMergedAlleles; k++ {
					*dest.Slot(callIndex, GenotypeIndex(j, k)) = missing
				}
				continue
			}
			inputJ = inputNonRef
		}
		for k := j; k < numMergedAlleles; k++ {
			genotypeIndex := GenotypeIndex(j, k)
			inputK := table.InputIndex(callIndex, k)
			if IsMissingIndex(inputK) {
				if IsMissingIndex(inputNonRef) {
					*dest.Slot(callIndex, genotypeIndex) = missing
					continue
				}
				inputK = inputNonRef
			}
			*dest.Slot(callIndex, genotypeIndex) = input[GenotypeIndex(inputJ, inputK)]
			validCounts[genotypeIndex]++
		}
	}
}

// RemapGenotypeCalls translates one sample's genotype call entries
// from local to merged allele indices. Every entry must have a
// mapping; a genotype call that refers to an allele without a merged
// index is a logic error.
func RemapGenotypeCalls(input, output []int32, table *AlleleTable, callIndex int) {
	if len(input) != len(output) {
		log.Panicf("genotype call lengths differ for call %v: %v and %v", callIndex, len(input), len(output))
	}
	for i, allele := range input {
		mergedIndex := table.MergedIndex(callIndex, int(allele))
		if IsMissingIndex(mergedIndex) {
			log.Panicf("genotype call entry %v of call %v refers to allele %v, which has no merged allele index", i, callIndex, allele)
		}
		output[i] = int32(mergedIndex)
	}
}
