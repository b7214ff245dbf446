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

// Package report renders the per-read and per-dataset QC tables as CSV
// and TSV files, the inputs for external plotting.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/willf/bitset"

	"github.com/exascience/elqc/fastq"
	"github.com/exascience/elqc/paf"
	"github.com/exascience/elqc/stats"
	"github.com/exascience/elqc/utils"
)

var perReadHeader = []string{
	"read_name", "length", "avg_quality",
	"alignment_length", "aligned_fraction", "error_rate",
	"match_rate", "mismatch_rate", "insertion_rate", "deletion_rate",
	"target_name", "target_start", "target_end",
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

func formatInt32(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}

// WritePerRead writes the per-read QC table as CSV: a left join of the
// read-length table with the deduplicated alignment summary table on
// read name. Unaligned reads keep their row, with empty alignment
// fields. It returns the number of reads that have an alignment.
func WritePerRead(w io.Writer, reads []fastq.ReadInfo, alns []*paf.AlignmentSummary) (uint, error) {
	byName := make(map[string]*paf.AlignmentSummary, len(alns))
	for _, aln := range alns {
		byName[aln.ReadName] = aln
	}

	out := csv.NewWriter(w)
	if err := out.Write(perReadHeader); err != nil {
		return 0, err
	}
	aligned := bitset.New(uint(len(reads)))
	row := make([]string, len(perReadHeader))
	for i, read := range reads {
		row[0] = read.Name
		row[1] = formatInt32(read.Length)
		row[2] = formatFloat(read.AvgQual)
		if aln, ok := byName[read.Name]; ok {
			aligned.Set(uint(i))
			row[3] = formatInt32(aln.AlignmentLength)
			row[4] = formatFloat(aln.AlignedFraction)
			row[5] = formatFloat(aln.ErrorRate)
			row[6] = formatFloat(aln.MatchRate)
			row[7] = formatFloat(aln.MismatchRate)
			row[8] = formatFloat(aln.InsertionRate)
			row[9] = formatFloat(aln.DeletionRate)
			row[10] = aln.TName
			row[11] = formatInt32(aln.TStart)
			row[12] = formatInt32(aln.TEnd)
		} else {
			for j := 3; j < len(row); j++ {
				row[j] = ""
			}
		}
		if err := out.Write(row); err != nil {
			return 0, err
		}
	}
	out.Flush()
	return aligned.Count(), out.Error()
}

// WriteSummary writes the dataset summary as key/value TSV lines,
// including the drop accounting of the run so users can judge whether
// the QC results are trustworthy given record loss. Every summary is
// stamped with a fresh run identifier.
func WriteSummary(w io.Writer, dataset string, summary stats.Summary, drops *paf.DropStats) error {
	lines := []struct {
		key   string
		value string
	}{
		{"run_id", uuid.New().String()},
		{"program", utils.ProgramName + " " + utils.ProgramVersion},
		{"dataset", dataset},
		{"reads", strconv.Itoa(summary.Reads)},
		{"total_bases", strconv.FormatInt(summary.TotalBases, 10)},
		{"max_length", formatInt32(summary.MaxLength)},
		{"n50", formatInt32(summary.N50)},
		{"mean_length", formatFloat(summary.MeanLength)},
		{"median_length", formatFloat(summary.MedianLength)},
		{"mean_quality", formatFloat(summary.MeanQuality)},
		{"aligned_reads", strconv.Itoa(summary.AlignedReads)},
		{"aligned_read_fraction", formatFloat(summary.AlignedReadFraction)},
		{"aligned_bases", strconv.FormatInt(summary.AlignedBases, 10)},
		{"aligned_bases_fraction", formatFloat(summary.AlignedBasesFraction)},
		{"mean_identity", formatFloat(summary.MeanIdentity)},
		{"mean_mismatch_rate", formatFloat(summary.MeanMismatchRate)},
		{"mean_insertion_rate", formatFloat(summary.MeanInsertionRate)},
		{"mean_deletion_rate", formatFloat(summary.MeanDeletionRate)},
		{"dropped_records", strconv.FormatUint(drops.Total(), 10)},
		{"dropped_malformed", strconv.FormatUint(drops.MalformedRecords, 10)},
		{"dropped_missing_cs", strconv.FormatUint(drops.MissingCsTags, 10)},
		{"dropped_length_overflow", strconv.FormatUint(drops.LengthOverflows, 10)},
		{"dropped_empty_alignment", strconv.FormatUint(drops.EmptyAlignments, 10)},
		{"skipped_cs_bytes", strconv.FormatUint(drops.SkippedCsBytes, 10)},
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%v\t%v\n", line.key, line.value); err != nil {
			return err
		}
	}
	return nil
}
