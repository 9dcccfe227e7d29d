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

	"github.com/jackgoldsmith4/GenomicsDB/utils"
)

// Constants for field arity, analogous to the Number entries of VCF
// format information. A field has exactly one arity, so allele-count
// dependence and genotype-count dependence are mutually exclusive by
// construction.
const (
	NumberA int32 = -1 * (1 + iota) // one value per alt allele
	NumberR                         // one value per allele, including the reference
	NumberG                         // one value per genotype (unordered allele pair)
)

// FieldInfo describes one queried field.
type FieldInfo struct {
	ID     utils.Symbol
	Type   ElementType
	Number int32 // NumberA, NumberR, NumberG, or a fixed element count >= 0
}

// AlleleDependent tells whether the field length depends on the
// number of alleles.
func (info *FieldInfo) AlleleDependent() bool {
	return info.Number == NumberA || info.Number == NumberR
}

// AltAllelesOnly tells whether the field has one value per alt
// allele, excluding the reference.
func (info *FieldInfo) AltAllelesOnly() bool {
	return info.Number == NumberA
}

// GenotypeDependent tells whether the field length depends on the
// number of genotypes.
func (info *FieldInfo) GenotypeDependent() bool {
	return info.Number == NumberG
}

func (info *FieldInfo) numElements(numMergedAlleles int) int {
	switch info.Number {
	case NumberA:
		return numMergedAlleles - 1
	case NumberR:
		return numMergedAlleles
	case NumberG:
		return GenotypeCount(numMergedAlleles)
	default:
		return int(info.Number)
	}
}

// A QueryConfig lists the queried fields for a combine run. The slice
// index of a field in Fields is its query field index, which is also
// its index in every call's Fields slice.
type QueryConfig struct {
	Fields  []*FieldInfo
	gtIndex int
}

// NewQueryConfig validates the given field descriptions and returns a
// query configuration for them.
func NewQueryConfig(fields []*FieldInfo) (*QueryConfig, error) {
	config := &QueryConfig{Fields: fields, gtIndex: -1}
	seen := make(map[utils.Symbol]bool)
	for index, info := range fields {
		if info.ID == nil {
			return nil, fmt.Errorf("queried field %v has no identifier", index)
		}
		if seen[info.ID] {
			return nil, fmt.Errorf("duplicate queried field %v", *info.ID)
		}
		seen[info.ID] = true
		if info.Number < NumberG {
			return nil, fmt.Errorf("invalid arity %v for queried field %v", info.Number, *info.ID)
		}
		if info.ID == GT {
			if info.Type != Int32Element {
				return nil, fmt.Errorf("the GT field must have element type int32, not %v", info.Type)
			}
			if info.AlleleDependent() || info.GenotypeDependent() {
				return nil, fmt.Errorf("the GT field cannot be allele or genotype dependent")
			}
			config.gtIndex = index
		}
	}
	return config, nil
}

// GTIndex returns the query field index of the genotype call field,
// or -1 if it is not queried.
func (config *QueryConfig) GTIndex() int {
	return config.gtIndex
}

// FieldIndex returns the query field index for the given identifier,
// or -1 if it is not queried.
func (config *QueryConfig) FieldIndex(id utils.Symbol) int {
	for index, info := range config.Fields {
		if info.ID == id {
			return index
		}
	}
	return -1
}
