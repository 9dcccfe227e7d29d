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
	"strings"
)

// NonRef is the symbolic placeholder allele representing any allele
// not otherwise listed. When present, it is always the last merged
// alt allele.
const NonRef = "<NON_REF>"

// unknownRef substitutes the reference of calls that started before
// the position currently being merged; their true reference is not
// known at this sub-position.
const unknownRef = "N"

// ModifyReferenceIfInMiddle replaces the reference allele of every
// valid call that starts before the variant's position with the
// unknown-reference placeholder.
func ModifyReferenceIfInMiddle(v *Variant) {
	v.EachValidCall(func(_ int, call *Call) {
		if call.Pos < v.Pos {
			call.Ref = unknownRef
		}
	})
}

// MergeReference returns the longest reference allele among the valid
// calls of the variant. Since all calls start at the same position,
// every shorter reference allele must be a prefix of the longest one;
// when validate is set, a violation of that invariant is reported as
// an error. The unknown-reference placeholder is exempt from the
// check, and is replaced wholesale as soon as a real reference is
// seen.
func MergeReference(v *Variant, validate bool) (string, error) {
	var merged string
	for index := range v.Calls {
		if !v.IsValid(index) {
			continue
		}
		curr := v.Calls[index].Ref
		longer, shorter := merged, curr
		if len(curr) > len(merged) {
			longer, shorter = curr, merged
		}
		if validate && merged != unknownRef && curr != unknownRef && !strings.HasPrefix(longer, shorter) {
			return "", fmt.Errorf("when combining variants at position %v, the shorter reference allele should be a prefix of the longer reference allele: %v , %v", v.Pos, shorter, longer)
		}
		if len(curr) > len(merged) {
			if merged == unknownRef {
				merged = curr
			} else {
				merged += curr[len(merged):]
			}
		} else if merged == unknownRef && curr != unknownRef {
			merged = curr
		}
	}
	return merged, nil
}

// MergeAltAlleles deduplicates and unions the alt alleles of the
// valid calls of the variant into a merged alt allele list, and
// records the per-sample mappings between local and merged allele
// indices in the given allele table. Alt alleles of calls whose
// reference is shorter than the merged reference are first padded
// with the trailing suffix of the merged reference. Merged alt
// alleles appear in first-seen order, except that the NonRef
// placeholder, if present in any call, is always last. The returned
// flag reports whether NonRef is present.
func MergeAltAlleles(v *Variant, mergedRef string, table *AlleleTable) (mergedAlt []string, nonRefExists bool) {
	// marking NonRef as already seen ensures it is not inserted in the middle
	seenAlleles := map[string]int{NonRef: MissingIndex}
	table.Reset()
	// local NonRef indices per call; the merged NonRef index is not
	// known until all alt alleles have been seen
	inputNonRefIndex := make([]int, len(v.Calls))
	for i := range inputNonRefIndex {
		inputNonRefIndex[i] = MissingIndex
	}
	mergedIndex := 1 // ref is index 0, alt alleles begin at 1
	v.EachValidCall(func(callIndex int, call *Call) {
		var suffix string
		if len(call.Ref) < len(mergedRef) {
			suffix = mergedRef[len(call.Ref):]
		}
		// the reference always maps to the reference
		table.AddAllelePair(callIndex, 0, 0)
		for i, allele := range call.Alt {
			inputIndex := i + 1
			if allele == NonRef {
				inputNonRefIndex[callIndex] = inputIndex
				nonRefExists = true
				continue
			}
			allele += suffix
			if seenIndex, ok := seenAlleles[allele]; ok {
				table.AddAllelePair(callIndex, inputIndex, seenIndex)
			} else {
				seenAlleles[allele] = mergedIndex
				table.ResizeIfNeeded(len(v.Calls), mergedIndex+1)
				table.AddAllelePair(callIndex, inputIndex, mergedIndex)
				mergedAlt = append(mergedAlt, allele)
				mergedIndex++
			}
		}
	})
	if nonRefExists {
		// NonRef is always the last merged alt allele
		mergedAlt = append(mergedAlt, NonRef)
		nonRefIndex := len(mergedAlt) // allele index, so the reference counts too
		table.ResizeIfNeeded(len(v.Calls), nonRefIndex+1)
		v.EachValidCall(func(callIndex int, _ *Call) {
			if inputNonRefIndex[callIndex] >= 0 {
				table.AddAllelePair(callIndex, inputNonRefIndex[callIndex], nonRefIndex)
			}
		})
	}
	return mergedAlt, nonRefExists
}
