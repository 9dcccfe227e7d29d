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

package bgzf

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"math/rand"
	"testing"
)

func TestIsGzip(t *testing.T) {
	if ok, err := IsGzip(bytes.NewReader(eofMarker)); err != nil || !ok {
		t.Error("IsGzip positive failed")
	}
	if ok, err := IsGzip(bytes.NewReader([]byte("#fields=DP:Integer:1"))); err != nil || ok {
		t.Error("IsGzip negative failed")
	}
}

func TestRoundTrip(t *testing.T) {
	data := make([]byte, 3*maxBlockSize+12345)
	r := rand.New(rand.NewSource(42))
	for i := range data {
		data[i] = byte('A' + r.Intn(26))
	}
	var buf bytes.Buffer
	writer := NewWriter(&buf, gzip.DefaultCompression)
	if _, err := writer.Write(data); err != nil {
		t.Fatal("bgzf Write failed: ", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal("bgzf writer Close failed: ", err)
	}
	reader, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal("bgzf NewReader failed: ", err)
	}
	result, err := ioutil.ReadAll(reader)
	if err != nil {
		t.Fatal("bgzf Read failed: ", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatal("bgzf reader Close failed: ", err)
	}
	if !bytes.Equal(result, data) {
		t.Error("bgzf round trip failed")
	}
}
