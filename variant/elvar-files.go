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
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jackgoldsmith4/GenomicsDB/utils"
)

// ElvarExt is the file extension for elvar files, the per-sample
// record format of the combiner. An elvar file starts with a
// #fields= line declaring the queried fields, followed by one
// tab-separated line per record: start, end, reference allele, comma
// separated alt alleles, and one comma separated value column per
// declared field. A dot denotes an empty alt allele list or an
// absent field.
const ElvarExt = ".elvar"

// GzExt is the file extension for BGZF-compressed elvar files.
const GzExt = ".gz"

const fieldsLinePrefix = "#fields="

// The element type names used in elvar field declarations.
var elvarTypes = map[string]ElementType{
	"Integer":      Int32Element,
	"Long":         Int64Element,
	"Unsigned":     Uint32Element,
	"UnsignedLong": Uint64Element,
	"Float":        Float32Element,
	"Double":       Float64Element,
	"Character":    CharElement,
	"String":       StringElement,
}

func parseFieldDeclaration(s string) (*FieldInfo, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid field declaration %v", s)
	}
	elementType, ok := elvarTypes[parts[1]]
	if !ok {
		return nil, fmt.Errorf("unknown element type %v in field declaration %v", parts[1], s)
	}
	var number int32
	switch parts[2] {
	case "A":
		number = NumberA
	case "R":
		number = NumberR
	case "G":
		number = NumberG
	default:
		n, err := strconv.ParseInt(parts[2], 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid arity %v in field declaration %v", parts[2], s)
		}
		number = int32(n)
	}
	return &FieldInfo{ID: utils.Intern(parts[0]), Type: elementType, Number: number}, nil
}

// ParseQueryConfig parses a #fields= line into a query configuration.
func ParseQueryConfig(line string) (*QueryConfig, error) {
	if !strings.HasPrefix(line, fieldsLinePrefix) {
		return nil, fmt.Errorf("missing %v declaration", fieldsLinePrefix)
	}
	var fields []*FieldInfo
	for _, s := range strings.Split(line[len(fieldsLinePrefix):], ",") {
		info, err := parseFieldDeclaration(s)
		if err != nil {
			return nil, err
		}
		fields = append(fields, info)
	}
	return NewQueryConfig(fields)
}

// SameQueryConfig tells whether two query configurations declare the
// same fields in the same order.
func SameQueryConfig(config1, config2 *QueryConfig) bool {
	if len(config1.Fields) != len(config2.Fields) {
		return false
	}
	for i, info := range config1.Fields {
		other := config2.Fields[i]
		if info.ID != other.ID || info.Type != other.Type || info.Number != other.Number {
			return false
		}
	}
	return true
}

func parseValues(column string, elementType ElementType) (Value, error) {
	if column == missingLiteral {
		return nil, nil
	}
	items := strings.Split(column, ",")
	switch elementType {
	case Int32Element:
		data := make([]int32, len(items))
		for i, item := range items {
			n, err := strconv.ParseInt(item, 10, 32)
			if err != nil {
				return nil, err
			}
			data[i] = int32(n)
		}
		return NewValues(data), nil
	case Int64Element:
		data := make([]int64, len(items))
		for i, item := range items {
			n, err := strconv.ParseInt(item, 10, 64)
			if err != nil {
				return nil, err
			}
			data[i] = n
		}
		return NewValues(data), nil
	case Uint32Element:
		data := make([]uint32, len(items))
		for i, item := range items {
			n, err := strconv.ParseUint(item, 10, 32)
			if err != nil {
				return nil, err
			}
			data[i] = uint32(n)
		}
		return NewValues(data), nil
	case Uint64Element:
		data := make([]uint64, len(items))
		for i, item := range items {
			n, err := strconv.ParseUint(item, 10, 64)
			if err != nil {
				return nil, err
			}
			data[i] = n
		}
		return NewValues(data), nil
	case Float32Element:
		data := make([]float32, len(items))
		for i, item := range items {
			f, err := strconv.ParseFloat(item, 32)
			if err != nil {
				return nil, err
			}
			data[i] = float32(f)
		}
		return NewValues(data), nil
	case Float64Element:
		data := make([]float64, len(items))
		for i, item := range items {
			f, err := strconv.ParseFloat(item, 64)
			if err != nil {
				return nil, err
			}
			data[i] = f
		}
		return NewValues(data), nil
	case CharElement:
		data := make([]byte, len(items))
		for i, item := range items {
			if len(item) != 1 {
				return nil, fmt.Errorf("invalid character value %v", item)
			}
			data[i] = item[0]
		}
		return NewValues(data), nil
	case StringElement:
		return NewValues(items), nil
	default:
		return nil, fmt.Errorf("unhandled element type %v", elementType)
	}
}

func parseRecord(sc *StringScanner, config *QueryConfig) (Call, error) {
	var call Call
	pos, err := strconv.ParseInt(sc.ReadColumn(), 10, 64)
	if err != nil {
		return call, err
	}
	end, err := strconv.ParseInt(sc.ReadColumn(), 10, 64)
	if err != nil {
		return call, err
	}
	call.Pos = pos
	call.Ref = sc.ReadColumn()
	if call.Ref == "" {
		return call, fmt.Errorf("missing reference allele")
	}
	if alt := sc.ReadColumn(); alt != missingLiteral && alt != "" {
		call.Alt = strings.Split(alt, ",")
	}
	if end != call.Pos+int64(len(call.Ref))-1 {
		call.Info.Set(END, end)
	}
	call.Fields = make([]Value, len(config.Fields))
	for i, info := range config.Fields {
		if sc.Len() == 0 {
			break
		}
		value, err := parseValues(sc.ReadColumn(), info.Type)
		if err != nil {
			return call, err
		}
		call.Fields[i] = value
	}
	return call, nil
}

// ReadElvar reads one sample's records from an elvar file. The
// records are returned in file order; they must be sorted by start
// position for use with a PositionSource.
func ReadElvar(reader io.Reader) (*QueryConfig, []Call, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty elvar input: %w", scanner.Err())
	}
	config, err := ParseQueryConfig(scanner.Text())
	if err != nil {
		return nil, nil, err
	}
	var calls []Call
	var sc StringScanner
	for line := 2; scanner.Scan(); line++ {
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		sc.Reset(text)
		call, err := parseRecord(&sc, config)
		if err != nil {
			return nil, nil, fmt.Errorf("elvar line %v: %w", line, err)
		}
		calls = append(calls, call)
	}
	return config, calls, scanner.Err()
}

// A PositionSource walks the distinct start positions across samples
// and yields one variant per position, with a valid call for every
// sample whose current record covers that position. Records whose
// start precedes the position are included as continuations of
// multi-base reference blocks.
type PositionSource struct {
	samples   [][]Call
	positions []int64
	cursors   []int
	next      int
}

// NewPositionSource creates a position source over the given per
// sample record slices, each sorted by start position.
func NewPositionSource(samples [][]Call) *PositionSource {
	var positions []int64
	for _, records := range samples {
		for i := range records {
			positions = append(positions, records[i].Pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	distinct := positions[:0]
	for i, pos := range positions {
		if i == 0 || pos != positions[i-1] {
			distinct = append(distinct, pos)
		}
	}
	return &PositionSource{
		samples:   samples,
		positions: distinct,
		cursors:   make([]int, len(samples)),
	}
}

// Next returns the variant at the next position, or false when all
// positions have been walked.
func (source *PositionSource) Next() (*Variant, bool) {
	if source.next >= len(source.positions) {
		return nil, false
	}
	pos := source.positions[source.next]
	source.next++
	v := NewVariant(pos, len(source.samples))
	for i, records := range source.samples {
		cursor := source.cursors[i]
		for cursor < len(records) && records[cursor].End() < pos {
			cursor++
		}
		source.cursors[i] = cursor
		if cursor < len(records) && records[cursor].Pos <= pos {
			v.SetCall(i, records[cursor])
		}
	}
	return v, true
}

// Variants walks all remaining positions and collects their variants.
func (source *PositionSource) Variants() []*Variant {
	var variants []*Variant
	for v, ok := source.Next(); ok; v, ok = source.Next() {
		variants = append(variants, v)
	}
	return variants
}
