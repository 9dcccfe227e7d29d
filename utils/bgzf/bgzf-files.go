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

// Package bgzf reads and writes blocked gzip files. Blocks are
// compressed and decompressed in parallel; the block boundaries make
// the format seekable and let decompression start before the whole
// file has been read.
package bgzf

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/exascience/pargo/pipeline"
)

// IsGzip determines if the given byte scanner produces a gzip file.
// It uses ReadByte and UnreadByte to check only the initial byte from
// the input.
func IsGzip(scanner io.ByteScanner) (bool, error) {
	b, err := scanner.ReadByte()
	if err != nil {
		return false, err
	}
	if err := scanner.UnreadByte(); err != nil {
		return false, err
	}
	return b == 0x1f, nil
}

// maxBlockSize is the maximum size of a BGZF block, compressed or
// uncompressed, fixed by the format.
const maxBlockSize = 65536

// eofMarker is the empty block that terminates every BGZF file.
var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00,
	0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// A block holds the payload of one BGZF block together with the CRC
// and uncompressed size recorded in its trailer.
type block struct {
	data []byte
	crc  uint32
	size uint32
}

var blockPool = sync.Pool{New: func() interface{} {
	return &block{data: make([]byte, 0, maxBlockSize)}
}}

// bcBlockSize extracts the total block size from the BC subfield of a
// gzip header's extra field.
func bcBlockSize(extra []byte) (int, error) {
	for i := 0; i+4 <= len(extra); {
		subfieldLength := int(binary.LittleEndian.Uint16(extra[i+2 : i+4]))
		if extra[i] == 'B' && extra[i+1] == 'C' && subfieldLength == 2 {
			return int(binary.LittleEndian.Uint16(extra[i+4 : i+6])) + 1, nil
		}
		i += 4 + subfieldLength
	}
	return 0, errors.New("missing BC extra subfield in BGZF header")
}

// A Reader reads from a BGZF file, decompressing blocks in parallel.
type Reader struct {
	err     error
	r       io.Reader
	gz      *gzip.Reader
	p       pipeline.Pipeline
	w       sync.WaitGroup
	channel chan *block
	ctx     context.Context
	cancel  func()
	data    interface{}
	index   int
	block   *block
}

// blockSource adapts a Reader into a pipeline.Source that fetches one
// raw compressed block at a time.
type blockSource Reader

// readBlock reads the compressed payload and trailer of the block
// whose header the gzip reader has just consumed, and positions the
// gzip reader at the next block header.
func (source *blockSource) readBlock() (*block, error) {
	blockSize, err := bcBlockSize(source.gz.Extra)
	if err != nil {
		return nil, err
	}
	b := blockPool.Get().(*block)
	// the payload is the block minus the header, the extra field, and
	// the 8-byte trailer
	b.data = b.data[:blockSize-len(source.gz.Extra)-20]
	if _, err := io.ReadFull(source.r, b.data); err != nil {
		return b, err
	}
	var trailer [8]byte
	if _, err := io.ReadFull(source.r, trailer[:]); err != nil {
		return b, err
	}
	b.crc = binary.LittleEndian.Uint32(trailer[0:4])
	b.size = binary.LittleEndian.Uint32(trailer[4:8])
	switch err := source.gz.Reset(source.r); err {
	case nil:
		return b, nil
	case io.EOF:
		if len(b.data) != 2 || b.data[0] != 3 || b.data[1] != 0 || b.crc != 0 || b.size != 0 {
			return b, errors.New("invalid BGZF file: does not end in proper EOF marker")
		}
		return b, io.EOF
	default:
		return b, fmt.Errorf("%v in readBlock", err)
	}
}

// Err implements the corresponding method of pipeline.Source
func (source *blockSource) Err() error {
	if source.err != io.EOF {
		return source.err
	}
	return nil
}

// Prepare implements the corresponding method of pipeline.Source
func (source *blockSource) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the corresponding method of pipeline.Source
func (source *blockSource) Fetch(size int) (fetched int) {
	if source.err != nil {
		return 0
	}
	b, err := source.readBlock()
	if err != nil {
		// the trailing EOF marker block is not forwarded
		source.err = err
		source.data = nil
		return 0
	}
	source.data = b
	return 1
}

// Data implements the corresponding method of pipeline.Source
func (source *blockSource) Data() interface{} {
	return source.data
}

var flateReaderPool sync.Pool

func pooledFlateReader(r io.Reader) io.ReadCloser {
	if pooled := flateReaderPool.Get(); pooled != nil {
		fr := pooled.(io.ReadCloser)
		if fr.(flate.Resetter).Reset(r, nil) == nil {
			return fr
		}
	}
	return flate.NewReader(r)
}

// NewReader returns a Reader for the given flate.Reader.
func NewReader(r flate.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%v in bgzf.NewReader", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	reader := &Reader{
		r:       r,
		gz:      gz,
		channel: make(chan *block, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	reader.p.Source((*blockSource)(reader))
	reader.p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		compressed := data.(*block)
		flateReader := pooledFlateReader(bytes.NewReader(compressed.data))
		uncompressed := blockPool.Get().(*block)
		uncompressed.data = uncompressed.data[:int(compressed.size)]
		if _, err := io.ReadFull(flateReader, uncompressed.data); err == io.EOF {
			reader.p.SetErr(io.ErrUnexpectedEOF)
		} else if err != nil {
			reader.p.SetErr(err)
		} else if crc32.ChecksumIEEE(uncompressed.data) != compressed.crc {
			reader.p.SetErr(errors.New("invalid CRC-32 value for a data block in a BGZF file"))
		}
		if err := flateReader.Close(); err != nil {
			reader.p.SetErr(err)
		}
		flateReaderPool.Put(flateReader)
		blockPool.Put(compressed)
		return uncompressed
	})), pipeline.StrictOrd(pipeline.ReceiveAndFinalize(func(_ int, data interface{}) interface{} {
		select {
		case <-reader.ctx.Done():
		case reader.channel <- data.(*block):
		}
		return nil
	}, func() {
		close(reader.channel)
	})))
	reader.w.Add(1)
	go func() {
		defer reader.w.Done()
		reader.p.Run()
	}()
	return reader, nil
}

// Close implements the corresponding method of io.Closer
func (reader *Reader) Close() error {
	reader.cancel()
	reader.w.Wait()
	if err := reader.gz.Close(); err != nil {
		return err
	}
	return reader.p.Err()
}

func (reader *Reader) fetchBlock() error {
	select {
	case <-reader.ctx.Done():
		if reader.err != nil {
			return reader.err
		}
		return reader.ctx.Err()
	case b, ok := <-reader.channel:
		if !ok {
			return reader.err
		}
		reader.index = 0
		reader.block = b
		return nil
	}
}

// Read implements the corresponding method of io.Reader
func (reader *Reader) Read(p []byte) (n int, err error) {
	if reader.block == nil {
		if err = reader.fetchBlock(); err != nil {
			return
		}
	} else if reader.index == len(reader.block.data) {
		blockPool.Put(reader.block)
		reader.block = nil
		if err = reader.fetchBlock(); err != nil {
			return
		}
	}
	n = copy(p, reader.block.data[reader.index:])
	reader.index += n
	return
}

// A Writer writes to a BGZF file, compressing blocks in parallel.
type Writer struct {
	w       io.Writer
	p       pipeline.Pipeline
	wait    sync.WaitGroup
	block   *rawBlock
	channel chan *rawBlock
	data    interface{}
}

// A rawBlock accumulates uncompressed bytes until a full block can be
// handed to the compression stage.
type rawBlock struct {
	bytes []byte
}

// rawSource adapts a Writer into a pipeline.Source that fetches full
// uncompressed blocks from the write side.
type rawSource Writer

// Err implements the corresponding method of pipeline.Source
func (*rawSource) Err() error {
	return nil
}

// Prepare implements the corresponding method of pipeline.Source
func (source *rawSource) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the corresponding method of pipeline.Source
func (source *rawSource) Fetch(size int) (fetched int) {
	if b, ok := <-source.channel; ok {
		source.data = b
		return 1
	}
	source.data = nil
	return 0
}

// Data implements the corresponding method of pipeline.Source
func (source *rawSource) Data() interface{} {
	return source.data
}

var (
	rawPool = sync.Pool{New: func() interface{} {
		return &rawBlock{bytes: make([]byte, 0, maxBlockSize)}
	}}

	flateWriterPool sync.Pool
)

// blockHeader is the gzip header of a BGZF block, with a BC extra
// subfield whose block size is filled in after compression.
var blockHeader = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x00, 0x00,
}

// NewWriter returns a Writer for the given io.Writer.
//
// Following zlib, levels range from 1 (BestSpeed) to 9
// (BestCompression); higher levels typically run slower but compress
// more. Level 0 (NoCompression) does not attempt any compression; it
// only adds the necessary DEFLATE framing. Level -1
// (DefaultCompression) uses the default compression level. Level -2
// (HuffmanOnly) will use Huffman compression only, giving a very fast
// compression for all types of input, but sacrificing considerable
// compression efficiency.
func NewWriter(w io.Writer, level int) *Writer {
	writer := &Writer{
		w:       w,
		block:   rawPool.Get().(*rawBlock),
		channel: make(chan *rawBlock, 1),
	}
	writer.p.Source((*rawSource)(writer))
	writer.p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		raw := data.(*rawBlock)
		compressed := rawPool.Get().(*rawBlock)
		buf := bytes.NewBuffer(compressed.bytes)
		buf.Write(blockHeader)
		var flateWriter *flate.Writer
		if pooled := flateWriterPool.Get(); pooled != nil {
			flateWriter = pooled.(*flate.Writer)
			flateWriter.Reset(buf)
		} else {
			var err error
			if flateWriter, err = flate.NewWriter(buf, level); err != nil {
				writer.p.SetErr(err)
			}
		}
		if _, err := flateWriter.Write(raw.bytes); err != nil {
			writer.p.SetErr(err)
		} else if err := flateWriter.Close(); err != nil {
			writer.p.SetErr(err)
		}
		compressed.bytes = buf.Bytes()
		trailer := len(compressed.bytes)
		compressed.bytes = compressed.bytes[:trailer+8]
		binary.LittleEndian.PutUint32(compressed.bytes[trailer:trailer+4], crc32.ChecksumIEEE(raw.bytes))
		binary.LittleEndian.PutUint32(compressed.bytes[trailer+4:trailer+8], uint32(len(raw.bytes)))
		binary.LittleEndian.PutUint16(compressed.bytes[16:18], uint16(len(compressed.bytes)-1))
		raw.bytes = raw.bytes[:0]
		rawPool.Put(raw)
		flateWriterPool.Put(flateWriter)
		return compressed
	})), pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
		compressed := data.(*rawBlock)
		if _, err := w.Write(compressed.bytes); err != nil {
			writer.p.SetErr(err)
		}
		compressed.bytes = compressed.bytes[:0]
		rawPool.Put(compressed)
		return nil
	})))
	writer.wait.Add(1)
	go func() {
		defer writer.wait.Done()
		writer.p.Run()
	}()
	return writer
}

func (writer *Writer) sendBlock() (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = errors.New(fmt.Sprint(x))
		}
	}()
	writer.channel <- writer.block
	return nil
}

// Close implements the corresponding method of io.Closer
func (writer *Writer) Close() error {
	if writer.block != nil && len(writer.block.bytes) > 0 {
		if err := writer.sendBlock(); err != nil {
			return err
		}
	}
	close(writer.channel)
	writer.wait.Wait()
	if err := writer.p.Err(); err != nil {
		return err
	}
	_, err := writer.w.Write(eofMarker)
	return err
}

// Write implements the corresponding method of io.Writer.
func (writer *Writer) Write(p []byte) (n int, err error) {
	n = len(p)
	for {
		index := len(writer.block.bytes)
		newLength := index + len(p)
		if newLength < maxBlockSize {
			writer.block.bytes = writer.block.bytes[:newLength]
			copy(writer.block.bytes[index:], p)
			return
		}
		writer.block.bytes = writer.block.bytes[:maxBlockSize]
		k := copy(writer.block.bytes[index:], p)
		p = p[k:]
		if err := writer.sendBlock(); err != nil {
			return n - len(p), err
		}
		writer.block = rawPool.Get().(*rawBlock)
	}
}
