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
	"testing"
)

func makeVariant(pos int64, calls ...*Call) *Variant {
	v := NewVariant(pos, len(calls))
	for i, call := range calls {
		if call != nil {
			v.SetCall(i, *call)
		}
	}
	return v
}

func allelesEqual(alleles1, alleles2 []string) bool {
	if len(alleles1) != len(alleles2) {
		return false
	}
	for i, allele := range alleles1 {
		if allele != alleles2[i] {
			return false
		}
	}
	return true
}

func TestMergeReference(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "AT"},
		&Call{Pos: 100, Ref: "ATGC"},
	)
	if merged, err := MergeReference(v, true); err != nil || merged != "ATGC" {
		t.Error("MergeReference longest failed")
	}
	v = makeVariant(100,
		&Call{Pos: 100, Ref: "ATGC"},
		&Call{Pos: 100, Ref: "AT"},
	)
	if merged, err := MergeReference(v, true); err != nil || merged != "ATGC" {
		t.Error("MergeReference longest reversed failed")
	}
	v = makeVariant(100,
		&Call{Pos: 100, Ref: "A"},
		nil,
		&Call{Pos: 100, Ref: "AT"},
	)
	if merged, err := MergeReference(v, true); err != nil || merged != "AT" {
		t.Error("MergeReference with absent sample failed")
	}
}

func TestMergeReferencePrefixViolation(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "AT"},
		&Call{Pos: 100, Ref: "AGC"},
	)
	if _, err := MergeReference(v, true); err == nil {
		t.Error("MergeReference prefix violation failed")
	}
	if _, err := MergeReference(v, false); err != nil {
		t.Error("MergeReference without validation failed")
	}
}

func TestMergeReferenceUnknown(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 98, Ref: "TTT"},
		&Call{Pos: 100, Ref: "GA"},
	)
	ModifyReferenceIfInMiddle(v)
	if v.Calls[0].Ref != "N" {
		t.Error("ModifyReferenceIfInMiddle failed")
	}
	if v.Calls[1].Ref != "GA" {
		t.Error("ModifyReferenceIfInMiddle at position failed")
	}
	if merged, err := MergeReference(v, true); err != nil || merged != "GA" {
		t.Error("MergeReference unknown replaced failed")
	}
	v = makeVariant(100,
		&Call{Pos: 98, Ref: "TTT"},
		&Call{Pos: 99, Ref: "CC"},
	)
	ModifyReferenceIfInMiddle(v)
	if merged, err := MergeReference(v, true); err != nil || merged != "N" {
		t.Error("MergeReference all unknown failed")
	}
}

func TestMergeAltAlleles(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "A", Alt: []string{"T", "G"}},
		&Call{Pos: 100, Ref: "A", Alt: []string{"G", "C"}},
	)
	table := NewAlleleTable(len(v.Calls))
	mergedAlt, nonRefExists := MergeAltAlleles(v, "A", table)
	if !allelesEqual(mergedAlt, []string{"T", "G", "C"}) {
		t.Error("MergeAltAlleles union failed")
	}
	if nonRefExists {
		t.Error("MergeAltAlleles no NonRef failed")
	}
	if table.MergedIndex(0, 0) != 0 || table.MergedIndex(1, 0) != 0 {
		t.Error("MergeAltAlleles reference mapping failed")
	}
	if table.MergedIndex(0, 1) != 1 || table.MergedIndex(0, 2) != 2 {
		t.Error("MergeAltAlleles sample 0 mapping failed")
	}
	if table.MergedIndex(1, 1) != 2 || table.MergedIndex(1, 2) != 3 {
		t.Error("MergeAltAlleles sample 1 mapping failed")
	}
	if table.InputIndex(0, 2) != 2 || table.InputIndex(1, 2) != 1 {
		t.Error("MergeAltAlleles reverse mapping failed")
	}
	if !IsMissingIndex(table.InputIndex(0, 3)) {
		t.Error("MergeAltAlleles missing reverse mapping failed")
	}
}

func TestMergeAltAllelesSuffixPadding(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "AT", Alt: []string{"A"}},
		&Call{Pos: 100, Ref: "ATGC", Alt: []string{"AGC"}},
	)
	mergedRef, err := MergeReference(v, true)
	if err != nil || mergedRef != "ATGC" {
		t.Error("MergeReference for suffix padding failed")
	}
	table := NewAlleleTable(len(v.Calls))
	mergedAlt, _ := MergeAltAlleles(v, mergedRef, table)
	if !allelesEqual(mergedAlt, []string{"AGC"}) {
		t.Error("MergeAltAlleles suffix padding failed")
	}
	if table.MergedIndex(0, 1) != 1 || table.MergedIndex(1, 1) != 1 {
		t.Error("MergeAltAlleles padded mapping failed")
	}
}

func TestMergeAltAllelesNonRef(t *testing.T) {
	v := makeVariant(100,
		&Call{Pos: 100, Ref: "A", Alt: []string{NonRef, "T"}},
		&Call{Pos: 100, Ref: "A", Alt: []string{"G"}},
	)
	table := NewAlleleTable(len(v.Calls))
	mergedAlt, nonRefExists := MergeAltAlleles(v, "A", table)
	if !allelesEqual(mergedAlt, []string{"T", "G", NonRef}) {
		t.Error("MergeAltAlleles NonRef last failed")
	}
	if !nonRefExists {
		t.Error("MergeAltAlleles NonRef flag failed")
	}
	if table.MergedIndex(0, 1) != 3 || table.MergedIndex(0, 2) != 1 {
		t.Error("MergeAltAlleles NonRef mapping failed")
	}
	if table.MergedIndex(1, 1) != 2 {
		t.Error("MergeAltAlleles NonRef other sample failed")
	}
	if !IsMissingIndex(table.InputIndex(1, 3)) {
		t.Error("MergeAltAlleles NonRef absent reverse mapping failed")
	}
	if table.InputIndex(0, 3) != 1 {
		t.Error("MergeAltAlleles NonRef reverse mapping failed")
	}
}
