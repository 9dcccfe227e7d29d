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
	"bytes"
	"testing"

	"github.com/jackgoldsmith4/GenomicsDB/utils"
)

func makeGenotyperConfig(t *testing.T) *QueryConfig {
	config, err := NewQueryConfig([]*FieldInfo{
		{ID: testPL, Type: Int32Element, Number: NumberG},
	})
	if err != nil {
		t.Fatal("NewQueryConfig failed: ", err)
	}
	return config
}

func TestNewMedianGenotyper(t *testing.T) {
	config := makeGenotyperConfig(t)
	var buf bytes.Buffer
	if _, err := NewMedianGenotyper(config, testPL, &buf); err != nil {
		t.Error("NewMedianGenotyper failed")
	}
	if _, err := NewMedianGenotyper(config, utils.Intern("GL"), &buf); err == nil {
		t.Error("NewMedianGenotyper unknown field failed")
	}
	badConfig, err := NewQueryConfig([]*FieldInfo{
		{ID: testPL, Type: Int32Element, Number: NumberR},
	})
	if err != nil {
		t.Fatal("NewQueryConfig failed: ", err)
	}
	if _, err := NewMedianGenotyper(badConfig, testPL, &buf); err == nil {
		t.Error("NewMedianGenotyper allele dependent field failed")
	}
}

func TestGenotypeSameAlleles(t *testing.T) {
	config := makeGenotyperConfig(t)
	var buf bytes.Buffer
	genotyper, err := NewMedianGenotyper(config, testPL, &buf)
	if err != nil {
		t.Fatal("NewMedianGenotyper failed: ", err)
	}
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "A", Alt: []string{"T"}, Fields: []Value{NewValues([]int32{0, 10, 20})}},
		&Call{Pos: 100, Ref: "A", Alt: []string{"T"}, Fields: []Value{NewValues([]int32{5, 15, 25})}},
	)
	if err := genotyper.Genotype(v); err != nil {
		t.Fatal("Genotype failed: ", err)
	}
	if buf.String() != "100,A,T,0,10,20\n" {
		t.Error("Genotype same alleles failed")
	}
}

func TestGenotypeDifferentAlleles(t *testing.T) {
	config := makeGenotyperConfig(t)
	var buf bytes.Buffer
	genotyper, err := NewMedianGenotyper(config, testPL, &buf)
	if err != nil {
		t.Fatal("NewMedianGenotyper failed: ", err)
	}
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "A", Alt: []string{"T"}, Fields: []Value{NewValues([]int32{0, 10, 20})}},
		&Call{Pos: 100, Ref: "A", Alt: []string{"G"}, Fields: []Value{NewValues([]int32{1, 11, 21})}},
	)
	if err := genotyper.Genotype(v); err != nil {
		t.Fatal("Genotype failed: ", err)
	}
	// genotypes with a single contributor report that contributor's
	// value, the pair (T,G) has no contributor at all
	if buf.String() != "100,A,T,G,0,10,20,11,.,21\n" {
		t.Error("Genotype different alleles failed")
	}
}

func TestGenotypeAbsentField(t *testing.T) {
	config := makeGenotyperConfig(t)
	var buf bytes.Buffer
	genotyper, err := NewMedianGenotyper(config, testPL, &buf)
	if err != nil {
		t.Fatal("NewMedianGenotyper failed: ", err)
	}
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "A", Alt: []string{"T"}, Fields: []Value{nil}},
	)
	if err := genotyper.Genotype(v); err != nil {
		t.Fatal("Genotype failed: ", err)
	}
	if buf.String() != "100,A,T,.,.,.\n" {
		t.Error("Genotype absent field failed")
	}
}
