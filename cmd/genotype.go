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
	"github.com/jackgoldsmith4/GenomicsDB/utils"
	"github.com/jackgoldsmith4/GenomicsDB/utils/bgzf"
	"github.com/jackgoldsmith4/GenomicsDB/variant"
)

// GenotypeHelp is the help string for this command.
const GenotypeHelp = "genotype parameters:\n" +
	"genomicsdb genotype sample1.elvar sample2.elvar ... sampleN.elvar\n" +
	"[--likelihood-field name]\n" +
	"[--output file]\n" +
	"[--no-validate-reference]\n" +
	"[--nr-of-threads number]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Genotype implements the genotype command: it merges the alleles of
// all samples at every position and writes one summary line per
// position with the median genotype likelihoods in merged genotype
// order.
func Genotype() error {
	var (
		likelihoodField          string
		output, profile, logPath string
		nrOfThreads              int
		timed, noValidate        bool
	)

	var flags flag.FlagSet

	flags.StringVar(&likelihoodField, "likelihood-field", "PL", "name of the genotype likelihood field")
	flags.StringVar(&output, "output", "", "write summary lines to this file instead of stdout")
	flags.BoolVar(&noValidate, "no-validate-reference", false, "skip the reference prefix invariant check")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	inputs, argIndex := getFilenames(GenotypeHelp)
	parseFlags(flags, argIndex, GenotypeHelp)

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
		fmt.Fprint(os.Stderr, GenotypeHelp)
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

	likelihoodID := utils.Intern(likelihoodField)

	timedRun(timed, profile, "Genotyping variant calls.", 1, func() {
		var p pipeline.Pipeline
		p.Source(variants)
		p.Add(
			pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
				vs := data.([]*variant.Variant)
				var buf bytes.Buffer
				genotyper, err := variant.NewMedianGenotyper(config, likelihoodID, &buf)
				if err != nil {
					p.SetErr(err)
					return buf.Bytes()
				}
				genotyper.ValidateRefPrefix = !noValidate
				for _, v := range vs {
					if err := genotyper.Genotype(v); err != nil {
						p.SetErr(err)
						break
					}
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
