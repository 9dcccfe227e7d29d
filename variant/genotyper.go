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
	"fmt"
	"io"
	"sort"

	"github.com/jackgoldsmith4/GenomicsDB/utils"
)

// missingLiteral denotes a missing median in genotyper output lines.
const missingLiteral = "."

// A MedianGenotyper summarizes one position at a time: it remaps the
// genotype likelihoods of all samples into the merged genotype order
// and reports the median likelihood per merged genotype. It holds no
// state across positions beyond the output writer.
type MedianGenotyper struct {
	config          *QueryConfig
	likelihoodIndex int
	output          io.Writer

	// ValidateRefPrefix enables the reference prefix invariant check
	// during reference merging.
	ValidateRefPrefix bool
}

// NewMedianGenotyper creates a genotyper that reads the queried field
// with the given identifier, which must be a genotype-dependent int32
// field, and writes one summary line per position to output.
func NewMedianGenotyper(config *QueryConfig, likelihoodID utils.Symbol, output io.Writer) (*MedianGenotyper, error) {
	index := config.FieldIndex(likelihoodID)
	if index < 0 {
		return nil, fmt.Errorf("likelihood field %v is not queried", *likelihoodID)
	}
	info := config.Fields[index]
	if info.Type != Int32Element || !info.GenotypeDependent() {
		return nil, fmt.Errorf("likelihood field %v must be a genotype-dependent int32 field", *likelihoodID)
	}
	return &MedianGenotyper{
		config:            config,
		likelihoodIndex:   index,
		output:            output,
		ValidateRefPrefix: true,
	}, nil
}

// Genotype merges the alleles of the given variant, remaps every
// sample's likelihoods into a buffer sized to the merged genotype
// count, and emits one line of the form
// position,ref,alt...,median... where each median is the lower median
// (rank floor(count/2) counting from the largest value) of the
// contributing samples' likelihoods for that genotype. Genotypes with
// no contributing sample report the missing literal.
func (g *MedianGenotyper) Genotype(v *Variant) error {
	ModifyReferenceIfInMiddle(v)
	mergedRef, err := MergeReference(v, g.ValidateRefPrefix)
	if err != nil {
		return err
	}
	table := NewAlleleTable(len(v.Calls))
	mergedAlt, nonRefExists := MergeAltAlleles(v, mergedRef, table)

	numMergedAlleles := len(mergedAlt) + 1 // +1 for the reference allele
	numGenotypes := GenotypeCount(numMergedAlleles)
	remapped := NewMatrix[int32](numGenotypes, len(v.Calls), MissingInt32)
	validCounts := make([]int, numGenotypes)

	v.EachValidCall(func(callIndex int, call *Call) {
		field := call.Fields[g.likelihoodIndex]
		if field == nil {
			return
		}
		input := field.(*Values[int32]).Data
		RemapGenotypeValues(input, callIndex, table, numMergedAlleles, nonRefExists, remapped, validCounts, MissingInt32)
	})

	if _, err := fmt.Fprintf(g.output, "%v,%v", v.Pos, mergedRef); err != nil {
		return err
	}
	for _, alt := range mergedAlt {
		if _, err := fmt.Fprintf(g.output, ",%v", alt); err != nil {
			return err
		}
	}
	for i := 0; i < numGenotypes; i++ {
		if validCounts[i] == 0 {
			if _, err := fmt.Fprintf(g.output, ",%v", missingLiteral); err != nil {
				return err
			}
			continue
		}
		// the missing sentinel is the smallest int32, so sorting in
		// decreasing order moves non-contributing samples to the end
		row := remapped.Row(i)
		sort.Slice(row, func(a, b int) bool { return row[a] > row[b] })
		if _, err := fmt.Fprintf(g.output, ",%v", row[validCounts[i]/2]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(g.output)
	return err
}
