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

package paf

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/exascience/pargo/pipeline"
)

const (
	minBatchSize = 4096
	maxBatchSize = 262144
)

// DropStats counts the records of a dataset that were dropped rather
// than summarized, and the cs bytes that were skipped because they did
// not match any token of the cs grammar. All counters are updated
// atomically by the parallel record parsers.
type DropStats struct {
	MalformedRecords uint64
	MissingCsTags    uint64
	LengthOverflows  uint64
	EmptyAlignments  uint64
	SkippedCsBytes   uint64
}

// Total returns the total number of dropped records.
func (d *DropStats) Total() uint64 {
	return atomic.LoadUint64(&d.MalformedRecords) +
		atomic.LoadUint64(&d.MissingCsTags) +
		atomic.LoadUint64(&d.LengthOverflows) +
		atomic.LoadUint64(&d.EmptyAlignments)
}

// Log reports the drop counters so users can judge whether the QC
// results are trustworthy given record loss.
func (d *DropStats) Log() {
	if total := d.Total(); total > 0 {
		log.Println("Dropped", total, "alignment records:",
			atomic.LoadUint64(&d.MalformedRecords), "malformed,",
			atomic.LoadUint64(&d.MissingCsTags), "without cs tag,",
			atomic.LoadUint64(&d.LengthOverflows), "with overlong edit operations,",
			atomic.LoadUint64(&d.EmptyAlignments), "with empty alignments.")
	}
	if skipped := atomic.LoadUint64(&d.SkippedCsBytes); skipped > 0 {
		log.Println("Skipped", skipped, "unrecognized bytes in cs tags.")
	}
}

// A Table collects the alignment summaries of one dataset. The order
// of the summaries is unspecified; all consumers treat the table as a
// set keyed by read name.
type Table struct {
	Summaries []*AlignmentSummary
	Drops     DropStats
}

// LinesToSummaries returns a pargo pipeline.Filter that parses batches
// of PAF record lines into alignment summaries. Records that cannot be
// summarized are dropped and counted in stats; they never fail the
// batch.
func LinesToSummaries(stats *DropStats) pipeline.Filter {
	return func(p *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		receiver = func(_ int, data interface{}) interface{} {
			lines := data.([][]byte)
			sums := make([]*AlignmentSummary, 0, len(lines))
			var sc StringScanner
			for _, line := range lines {
				sc.Reset(string(line))
				rec, err := sc.ParseRecord()
				if err != nil {
					atomic.AddUint64(&stats.MalformedRecords, 1)
					continue
				}
				sum, err := rec.Summarize()
				switch err {
				case nil:
					atomic.AddUint64(&stats.SkippedCsBytes, uint64(sum.SkippedCsBytes))
					sums = append(sums, sum)
				case ErrMissingCs:
					atomic.AddUint64(&stats.MissingCsTags, 1)
				case ErrLengthOverflow:
					atomic.AddUint64(&stats.LengthOverflows, 1)
				case ErrEmptyAlignment:
					atomic.AddUint64(&stats.EmptyAlignments, 1)
				default:
					atomic.AddUint64(&stats.MalformedRecords, 1)
				}
			}
			return sums
		}
		return
	}
}

// RunPipeline reads all records of the PAF input file in parallel
// batches and collects their alignment summaries into the table.
//
// Batches are bounded, and one batch completes before the next one is
// fetched, so peak memory is capped at one batch of raw lines plus its
// summaries. No ordering is guaranteed across batches or chunks.
//
// A dataset in which records carry no cs field at all is a
// configuration error of the upstream mapper, not an occasional record
// defect, and fails the run.
func (f *InputFile) RunPipeline(table *Table, nofBatches int) error {
	var p pipeline.Pipeline
	p.Source(f)
	p.SetVariableBatchSize(minBatchSize, maxBatchSize)
	p.Add(
		pipeline.LimitedPar(0, LinesToSummaries(&table.Drops)),
		pipeline.Seq(pipeline.Slice(&table.Summaries)),
	)
	p.NofBatches(nofBatches)
	p.Run()
	if err := p.Err(); err != nil {
		return err
	}
	if missing := atomic.LoadUint64(&table.Drops.MissingCsTags); missing > 0 && len(table.Summaries) == 0 {
		return fmt.Errorf("no record in the PAF input carries a cs tag; rerun the mapper with the cs tag enabled")
	}
	return nil
}
