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

func TestElementTypes(t *testing.T) {
	if NewValues([]int32{1}).ElementType() != Int32Element {
		t.Error("ElementType int32 failed")
	}
	if NewValues([]float64{1}).ElementType() != Float64Element {
		t.Error("ElementType float64 failed")
	}
	if NewValues([]string{"a"}).ElementType() != StringElement {
		t.Error("ElementType string failed")
	}
	if Int32Element.String() != "int32" || StringElement.String() != "string" {
		t.Error("ElementType String failed")
	}
}

func TestValuesResize(t *testing.T) {
	values := NewValues([]int32{1, 2, 3})
	values.Resize(5)
	if values.Len() != 5 {
		t.Error("Values Resize grow failed")
	}
	if !int32sEqual(values.Data[:3], []int32{1, 2, 3}) {
		t.Error("Values Resize preserve failed")
	}
	values.Resize(2)
	if !int32sEqual(values.Data, []int32{1, 2}) {
		t.Error("Values Resize shrink failed")
	}
}

func TestCallEnd(t *testing.T) {
	call := Call{Pos: 100, Ref: "ATG"}
	if call.End() != 102 {
		t.Error("Call End from reference failed")
	}
	call.Info.Set(END, int64(150))
	if call.End() != 150 {
		t.Error("Call End from info failed")
	}
}

func TestVariantValidCalls(t *testing.T) {
	v := NewVariant(100, 3)
	v.SetCall(0, Call{Pos: 100, Ref: "A"})
	v.SetCall(2, Call{Pos: 100, Ref: "AT"})
	if v.NumValidCalls() != 2 {
		t.Error("Variant NumValidCalls failed")
	}
	if !v.IsValid(0) || v.IsValid(1) || !v.IsValid(2) {
		t.Error("Variant IsValid failed")
	}
	var indices []int
	v.EachValidCall(func(index int, _ *Call) {
		indices = append(indices, index)
	})
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Error("Variant EachValidCall failed")
	}
}

func TestVariantClone(t *testing.T) {
	v := NewVariant(100, 2)
	v.SetCall(0, Call{
		Pos: 100, Ref: "A", Alt: []string{"T"},
		Fields: []Value{NewValues([]int32{1, 2})},
	})
	cloned := v.clone()
	cloned.Calls[0].Fields[0].(*Values[int32]).Data[0] = 42
	if callInt32s(v, 0, 0)[0] != 1 {
		t.Error("Variant clone field independence failed")
	}
	if cloned.Pos != 100 || !cloned.IsValid(0) || cloned.IsValid(1) {
		t.Error("Variant clone failed")
	}
}
