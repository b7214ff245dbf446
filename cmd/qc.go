// elQC: a high-performance tool for quality control of long-read sequencing data.
// Copyright (c) 2021 imec vzw.

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
// <https://github.com/ExaScience/elqc/blob/master/LICENSE.txt>.

package cmd

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elqc/fastq"
	"github.com/exascience/elqc/internal"
	"github.com/exascience/elqc/paf"
	"github.com/exascience/elqc/report"
	"github.com/exascience/elqc/stats"
)

// QcHelp is the help string for the qc command.
const QcHelp = "qc parameters:\n" +
	"elqc qc alignments.paf[.gz] reads.fastq[.gz]\n" +
	"[--output-dir dir]\n" +
	"[--nr-of-batches number]\n" +
	"[--nr-of-threads number]\n" +
	"[--timed]\n" +
	"[--profile filename]\n" +
	"[--log-path path]\n"

func datasetName(pafFile string) string {
	base := filepath.Base(pafFile)
	for ext := filepath.Ext(base); ext == paf.GzipExt || ext == paf.PafExt; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Qc implements the elqc qc command. It derives the per-read and
// per-dataset QC tables for one dataset from a PAF mapping file and
// the corresponding FASTQ/FASTA read file.
func Qc() error {
	var (
		outputDir   string
		nrOfBatches int
		nrOfThreads int
		timed       bool
		profile     string
		logPath     string
	)

	var flags flag.FlagSet

	flags.StringVar(&outputDir, "output-dir", ".", "directory for the QC report files")
	flags.IntVar(&nrOfBatches, "nr-of-batches", 0, "number of batches to read the PAF input in")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 4, QcHelp)

	pafFile := getFilename(os.Args[2], QcHelp)
	seqFile := getFilename(os.Args[3], QcHelp)

	setLogOutput(logPath)

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	if !checkExist("", pafFile) || !checkExist("", seqFile) {
		os.Exit(1)
	}

	dataset := datasetName(pafFile)
	log.Println("Running QC for dataset", dataset)

	var reads []fastq.ReadInfo
	phase := int64(1)
	err := timedRun(timed, profile, "Scanning read lengths and qualities.", phase, func() (err error) {
		reads, err = fastq.ReadTable(seqFile)
		return err
	})
	if err != nil {
		return err
	}

	table := &paf.Table{}
	phase++
	err = timedRun(timed, profile, "Parsing alignment records.", phase, func() (err error) {
		input, err := paf.Open(pafFile)
		if err != nil {
			return err
		}
		defer func() {
			nerr := input.Close()
			if err == nil {
				err = nerr
			}
		}()
		return input.RunPipeline(table, nrOfBatches)
	})
	if err != nil {
		return err
	}

	var best []*paf.AlignmentSummary
	phase++
	err = timedRun(timed, profile, "Selecting best alignments per read.", phase, func() error {
		best = table.Best()
		return nil
	})
	if err != nil {
		return err
	}

	phase++
	return timedRun(timed, profile, "Computing summary statistics and writing reports.", phase, func() (err error) {
		summary, err := stats.Compute(reads, best)
		if err != nil {
			return err
		}

		internal.MkdirAll(outputDir, 0700)

		perReadName, err := internal.FullPathname(filepath.Join(outputDir, dataset+".per-read.csv"))
		if err != nil {
			return err
		}
		perRead := internal.FileCreate(perReadName)
		defer internal.Close(perRead)
		aligned, err := report.WritePerRead(perRead, reads, best)
		if err != nil {
			return err
		}

		summaryName, err := internal.FullPathname(filepath.Join(outputDir, dataset+".summary.tsv"))
		if err != nil {
			return err
		}
		summaryFile := internal.FileCreate(summaryName)
		defer internal.Close(summaryFile)
		if err := report.WriteSummary(summaryFile, dataset, summary, &table.Drops); err != nil {
			return err
		}

		table.Drops.Log()
		log.Println("Summarized", len(table.Summaries), "alignment records;",
			aligned, "of", len(reads), "reads have an alignment.")
		log.Println("QC reports written to", perReadName, "and", summaryName)
		return nil
	})
}
