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

// MissingIndex is the sentinel for allele table entries that have no
// mapping.
const MissingIndex = -1

// IsMissingIndex tells whether an allele table lookup found no
// mapping.
func IsMissingIndex(index int) bool {
	return index < 0
}

// An AlleleTable maps allele indices between each sample's local
// numbering and the merged numbering at a position, in both
// directions. It is reset at the start of each position and grows as
// merged alleles are assigned; it never shrinks.
type AlleleTable struct {
	numCalls      int
	numAlleles    int
	inputToMerged [][]int
	mergedToInput [][]int
}

const initialAlleleCapacity = 10

// NewAlleleTable creates an allele table for the given number of
// sample rows, with all entries missing.
func NewAlleleTable(numCalls int) *AlleleTable {
	table := new(AlleleTable)
	table.ResizeIfNeeded(numCalls, initialAlleleCapacity)
	return table
}

// Reset sets all entries to MissingIndex.
func (table *AlleleTable) Reset() {
	for _, row := range table.inputToMerged {
		for i := range row {
			row[i] = MissingIndex
		}
	}
	for _, row := range table.mergedToInput {
		for i := range row {
			row[i] = MissingIndex
		}
	}
}

func grownCapacity(current, requested int) int {
	for current < requested {
		current = 2*current + 1
	}
	return current
}

func resizeRows(rows [][]int, numCalls, numAlleles int) [][]int {
	result := make([][]int, numCalls)
	for i := range result {
		row := make([]int, numAlleles)
		var copied int
		if i < len(rows) {
			copied = copy(row, rows[i])
		}
		for j := copied; j < numAlleles; j++ {
			row[j] = MissingIndex
		}
		result[i] = row
	}
	return result
}

// ResizeIfNeeded grows the table so that it can hold mappings for the
// given number of sample rows and allele indices. Growth is geometric
// and preserves existing entries; the new storage is fully built
// before it replaces the old, so a failed growth leaves the table
// untouched.
func (table *AlleleTable) ResizeIfNeeded(numCalls, numAlleles int) {
	if numCalls <= table.numCalls && numAlleles <= table.numAlleles {
		return
	}
	if numCalls < table.numCalls {
		numCalls = table.numCalls
	}
	numAlleles = grownCapacity(table.numAlleles, numAlleles)
	table.inputToMerged = resizeRows(table.inputToMerged, numCalls, numAlleles)
	table.mergedToInput = resizeRows(table.mergedToInput, numCalls, numAlleles)
	table.numCalls = numCalls
	table.numAlleles = numAlleles
}

// AddAllelePair records that the given sample's local allele index
// corresponds to the given merged allele index.
func (table *AlleleTable) AddAllelePair(callIndex, inputIndex, mergedIndex int) {
	larger := inputIndex
	if mergedIndex > larger {
		larger = mergedIndex
	}
	table.ResizeIfNeeded(callIndex+1, larger+1)
	table.inputToMerged[callIndex][inputIndex] = mergedIndex
	table.mergedToInput[callIndex][mergedIndex] = inputIndex
}

// MergedIndex returns the merged allele index for the given sample's
// local allele index, or MissingIndex if there is no mapping.
func (table *AlleleTable) MergedIndex(callIndex, inputIndex int) int {
	if inputIndex < 0 || inputIndex >= table.numAlleles {
		return MissingIndex
	}
	return table.inputToMerged[callIndex][inputIndex]
}

// InputIndex returns the given sample's local allele index for the
// given merged allele index, or MissingIndex if there is no mapping.
func (table *AlleleTable) InputIndex(callIndex, mergedIndex int) int {
	if mergedIndex < 0 || mergedIndex >= table.numAlleles {
		return MissingIndex
	}
	return table.mergedToInput[callIndex][mergedIndex]
}
