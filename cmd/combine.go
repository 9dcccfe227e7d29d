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

package cmd

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/jackgoldsmith4/GenomicsDB/internal"
	"github.com/jackgoldsmith4/GenomicsDB/utils/bgzf"
	"github.com/jackgoldsmith4/GenomicsDB/variant"
)

// CombineHelp is the help string for this command.
const CombineHelp = "combine parameters:\n" +
	"genomicsdb combine sample1.elvar sample2.elvar ... sampleN.elvar\n" +
	"[--output file]\n" +
	"[--no-validate-reference]\n" +
	"[--nr-of-threads number]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Combine implements the combine command: it merges the calls of all
// samples at every position and writes one combined record per
// position.
func Combine() error {
	var (
		output, profile, logPath string
		nrOfThreads              int
		timed, noValidate        bool
	)

	var flags flag.FlagSet

	flags.StringVar(&output, "output", "", "write combined records to this file instead of stdout")
	flags.BoolVar(&noValidate, "no-validate-reference", false, "skip the reference prefix invariant check")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	inputs, argIndex := getFilenames(CombineHelp)
	parseFlags(flags, argIndex, CombineHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := false
	for _, input := range inputs {
		if !checkExist("", input) {
			sanityChecksFailed = true
		}
	}
	if output != "" && !checkCreate("--output", output) {
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CombineHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	command := "Executing command:\n " + strings.Join(os.Args, " ")
	log.Println(command)

	config, samples, err := readSamples(inputs)
	if err != nil {
		return err
	}
	variants := variant.NewPositionSource(samples).Variants()

	out := os.Stdout
	if output != "" {
		out = internal.FileCreate(output)
		defer internal.Close(out)
	}
	var writer *bufio.Writer
	if strings.HasSuffix(output, variant.GzExt) {
		bgzfWriter := bgzf.NewWriter(out, gzip.DefaultCompression)
		defer internal.Close(bgzfWriter)
		writer = bufio.NewWriter(bgzfWriter)
	} else {
		writer = bufio.NewWriter(out)
	}

	timedRun(timed, profile, "Combining variant calls.", 1, func() {
		var p pipeline.Pipeline
		p.Source(variants)
		p.Add(
			pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
				vs := data.([]*variant.Variant)
				combiner := variant.NewCombiner(config, len(samples))
				combiner.ValidateRefPrefix = !noValidate
				var buf bytes.Buffer
				for _, v := range vs {
					combined, err := combiner.Combine(v)
					if err != nil {
						p.SetErr(err)
						break
					}
					formatCombined(&buf, combined, config)
				}
				return buf.Bytes()
			})),
			pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
				if _, err := writer.Write(data.([]byte)); err != nil {
					p.SetErr(err)
				}
				return data
			})),
		)
		internal.RunPipeline(&p)
	})

	return writer.Flush()
}

func altString(alt []string) string {
	if len(alt) == 0 {
		return "."
	}
	return strings.Join(alt, ",")
}

func writeList[T variant.Element](buf *bytes.Buffer, data []T) {
	for i, value := range data {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, "%v", value)
	}
}

func writeValues(buf *bytes.Buffer, value variant.Value) {
	switch v := value.(type) {
	case *variant.Values[int32]:
		writeList(buf, v.Data)
	case *variant.Values[int64]:
		writeList(buf, v.Data)
	case *variant.Values[uint32]:
		writeList(buf, v.Data)
	case *variant.Values[uint64]:
		writeList(buf, v.Data)
	case *variant.Values[float32]:
		writeList(buf, v.Data)
	case *variant.Values[float64]:
		writeList(buf, v.Data)
	case *variant.Values[byte]:
		writeList(buf, v.Data)
	case *variant.Values[string]:
		writeList(buf, v.Data)
	default:
		log.Panicf("unhandled value container %T", value)
	}
}

// formatCombined writes one combined record as a tab-separated line:
// position, merged reference, merged alt alleles, and one column per
// valid call listing its remapped field values.
func formatCombined(buf *bytes.Buffer, v *variant.Variant, config *variant.QueryConfig) {
	fmt.Fprintf(buf, "%v\t%v\t%v", v.Pos, v.Ref, altString(v.Alt))
	v.EachValidCall(func(index int, call *variant.Call) {
		fmt.Fprintf(buf, "\t%v:", index)
		first := true
		for i, info := range config.Fields {
			field := call.Fields[i]
			if field == nil {
				continue
			}
			if !first {
				buf.WriteByte(';')
			}
			first = false
			fmt.Fprintf(buf, "%v=", *info.ID)
			writeValues(buf, field)
		}
	})
	buf.WriteByte('\n')
}
