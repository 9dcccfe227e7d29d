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
	"strings"
	"testing"
)

const testElvarContent = "#fields=GT:Integer:2,AD:Integer:R,PL:Integer:G,DP:Integer:1\n" +
	"100\t103\tATGC\tAGC,ATTGC\t0,1\t10,5,3\t0,10,20,30,40,50\t30\n" +
	"200\t210\tA\t.\t0,0\t7\t0\t.\n"

func TestParseQueryConfig(t *testing.T) {
	config, err := ParseQueryConfig("#fields=GT:Integer:2,AD:Integer:R,PL:Integer:G,DP:Integer:1")
	if err != nil {
		t.Fatal("ParseQueryConfig failed: ", err)
	}
	if len(config.Fields) != 4 {
		t.Error("ParseQueryConfig field count failed")
	}
	if config.GTIndex() != 0 {
		t.Error("ParseQueryConfig GT index failed")
	}
	if info := config.Fields[1]; info.ID != testAD || info.Type != Int32Element || info.Number != NumberR {
		t.Error("ParseQueryConfig AD failed")
	}
	if info := config.Fields[2]; info.Number != NumberG {
		t.Error("ParseQueryConfig PL failed")
	}
	if info := config.Fields[3]; info.Number != 1 {
		t.Error("ParseQueryConfig DP failed")
	}
	if _, err := ParseQueryConfig("fields=GT:Integer:2"); err == nil {
		t.Error("ParseQueryConfig missing prefix failed")
	}
	if _, err := ParseQueryConfig("#fields=AD:Int:R"); err == nil {
		t.Error("ParseQueryConfig unknown type failed")
	}
	if _, err := ParseQueryConfig("#fields=AD:Integer:Z"); err == nil {
		t.Error("ParseQueryConfig invalid arity failed")
	}
}

func TestSameQueryConfig(t *testing.T) {
	config1, err := ParseQueryConfig("#fields=AD:Integer:R,PL:Integer:G")
	if err != nil {
		t.Fatal("ParseQueryConfig failed: ", err)
	}
	config2, err := ParseQueryConfig("#fields=AD:Integer:R,PL:Integer:G")
	if err != nil {
		t.Fatal("ParseQueryConfig failed: ", err)
	}
	if !SameQueryConfig(config1, config2) {
		t.Error("SameQueryConfig equal failed")
	}
	config3, err := ParseQueryConfig("#fields=AD:Integer:A,PL:Integer:G")
	if err != nil {
		t.Fatal("ParseQueryConfig failed: ", err)
	}
	if SameQueryConfig(config1, config3) {
		t.Error("SameQueryConfig different arity failed")
	}
	config4, err := ParseQueryConfig("#fields=AD:Integer:R")
	if err != nil {
		t.Fatal("ParseQueryConfig failed: ", err)
	}
	if SameQueryConfig(config1, config4) {
		t.Error("SameQueryConfig different length failed")
	}
}

func TestReadElvar(t *testing.T) {
	config, calls, err := ReadElvar(strings.NewReader(testElvarContent))
	if err != nil {
		t.Fatal("ReadElvar failed: ", err)
	}
	if len(config.Fields) != 4 {
		t.Error("ReadElvar config failed")
	}
	if len(calls) != 2 {
		t.Fatal("ReadElvar call count failed")
	}
	call := calls[0]
	if call.Pos != 100 || call.Ref != "ATGC" || !allelesEqual(call.Alt, []string{"AGC", "ATTGC"}) {
		t.Error("ReadElvar record 1 failed")
	}
	if call.End() != 103 {
		t.Error("ReadElvar record 1 end failed")
	}
	if _, ok := call.Info.Get(END); ok {
		t.Error("ReadElvar record 1 implicit end failed")
	}
	if !int32sEqual(call.Fields[0].(*Values[int32]).Data, []int32{0, 1}) {
		t.Error("ReadElvar record 1 GT failed")
	}
	if !int32sEqual(call.Fields[1].(*Values[int32]).Data, []int32{10, 5, 3}) {
		t.Error("ReadElvar record 1 AD failed")
	}
	if !int32sEqual(call.Fields[2].(*Values[int32]).Data, []int32{0, 10, 20, 30, 40, 50}) {
		t.Error("ReadElvar record 1 PL failed")
	}
	call = calls[1]
	if call.Pos != 200 || call.Ref != "A" || call.Alt != nil {
		t.Error("ReadElvar record 2 failed")
	}
	if call.End() != 210 {
		t.Error("ReadElvar record 2 end failed")
	}
	if call.Fields[3] != nil {
		t.Error("ReadElvar record 2 absent field failed")
	}
}

func TestReadElvarErrors(t *testing.T) {
	if _, _, err := ReadElvar(strings.NewReader("")); err == nil {
		t.Error("ReadElvar empty input failed")
	}
	content := "#fields=DP:Integer:1\n" + "foo\t100\tA\t.\t1\n"
	if _, _, err := ReadElvar(strings.NewReader(content)); err == nil {
		t.Error("ReadElvar invalid position failed")
	}
	content = "#fields=DP:Integer:1\n" + "100\t100\tA\t.\tx\n"
	if _, _, err := ReadElvar(strings.NewReader(content)); err == nil {
		t.Error("ReadElvar invalid value failed")
	}
}

func TestStringScanner(t *testing.T) {
	var sc StringScanner
	sc.Reset("a\tbc\td")
	if sc.ReadColumn() != "a" || sc.ReadColumn() != "bc" {
		t.Error("StringScanner ReadColumn failed")
	}
	if sc.Len() == 0 {
		t.Error("StringScanner Len failed")
	}
	if sc.ReadColumn() != "d" || sc.Len() != 0 {
		t.Error("StringScanner last column failed")
	}
}

func TestPositionSource(t *testing.T) {
	sample0 := []Call{
		{Pos: 100, Ref: "A"},
		{Pos: 200, Ref: "A"},
	}
	sample0[1].Info.Set(END, int64(210))
	sample1 := []Call{
		{Pos: 205, Ref: "T"},
	}
	source := NewPositionSource([][]Call{sample0, sample1})
	variants := source.Variants()
	if len(variants) != 3 {
		t.Fatal("PositionSource position count failed")
	}
	v := variants[0]
	if v.Pos != 100 || !v.IsValid(0) || v.IsValid(1) {
		t.Error("PositionSource position 100 failed")
	}
	v = variants[1]
	if v.Pos != 200 || !v.IsValid(0) || v.IsValid(1) {
		t.Error("PositionSource position 200 failed")
	}
	v = variants[2]
	if v.Pos != 205 || !v.IsValid(0) || !v.IsValid(1) {
		t.Error("PositionSource position 205 failed")
	}
	// sample 0's block starting at 200 continues through 205
	if v.Calls[0].Pos != 200 {
		t.Error("PositionSource block continuation failed")
	}
	if _, ok := source.Next(); ok {
		t.Error("PositionSource exhausted failed")
	}
}
