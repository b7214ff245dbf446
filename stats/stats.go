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

// Package stats computes dataset-level aggregates from the read-length
// table and the deduplicated alignment summary table of one dataset.
package stats

import (
	"errors"
	"sort"

	psort "github.com/exascience/pargo/sort"
	"gonum.org/v1/gonum/stat"

	"github.com/exascience/elqc/fastq"
	"github.com/exascience/elqc/paf"
)

type lengthSorter []int32

func (s lengthSorter) Len() int { return len(s) }

func (s lengthSorter) Less(i, j int) bool { return s[i] > s[j] }

func (s lengthSorter) SequentialSort(i, j int) {
	sub := s[i:j]
	sort.Slice(sub, func(i, j int) bool {
		return sub[i] > sub[j]
	})
}

func (s lengthSorter) NewTemp() psort.StableSorter {
	return make(lengthSorter, len(s))
}

func (s lengthSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(lengthSorter)
	return func(i, j, len int) {
		for k := 0; k < len; k++ {
			dst[i+k] = src[j+k]
		}
	}
}

// N50 returns the length value at the first position of the descending
// length order whose prefix sum reaches at least half of the total
// summed length. The input slice is left untouched.
//
// N50 panics for an empty input; callers guard on empty datasets and
// report those as errors instead.
func N50(lengths []int32) int32 {
	if len(lengths) == 0 {
		panic("N50 of an empty length table")
	}
	sorted := make(lengthSorter, len(lengths))
	copy(sorted, lengths)
	psort.StableSort(sorted)
	var total int64
	for _, length := range sorted {
		total += int64(length)
	}
	half := total / 2
	var prefix int64
	for _, length := range sorted {
		prefix += int64(length)
		if prefix >= half {
			return length
		}
	}
	return sorted[len(sorted)-1]
}

// A Summary holds the dataset-level aggregates of one sequencing run.
type Summary struct {
	Reads                int
	TotalBases           int64
	MaxLength            int32
	N50                  int32
	MeanLength           float64
	MedianLength         float64
	MeanQuality          float64
	AlignedReads         int
	AlignedReadFraction  float64
	AlignedBases         int64
	AlignedBasesFraction float64
	MeanIdentity         float64
	MeanMismatchRate     float64
	MeanInsertionRate    float64
	MeanDeletionRate     float64
}

// ErrEmptyDataset is returned when the read-length table has no rows.
var ErrEmptyDataset = errors.New("empty read-length table")

// Compute derives the dataset summary from the read-length table and
// the deduplicated alignment summary table. The alignment table may be
// empty; all alignment-derived fields are zero in that case.
func Compute(reads []fastq.ReadInfo, alns []*paf.AlignmentSummary) (Summary, error) {
	if len(reads) == 0 {
		return Summary{}, ErrEmptyDataset
	}

	lengths := make([]int32, len(reads))
	floats := make([]float64, len(reads))
	quals := make([]float64, len(reads))
	var totalBases int64
	var maxLength int32
	for i, read := range reads {
		lengths[i] = read.Length
		floats[i] = float64(read.Length)
		quals[i] = read.AvgQual
		totalBases += int64(read.Length)
		if read.Length > maxLength {
			maxLength = read.Length
		}
	}
	sort.Float64s(floats)

	summary := Summary{
		Reads:        len(reads),
		TotalBases:   totalBases,
		MaxLength:    maxLength,
		N50:          N50(lengths),
		MeanLength:   stat.Mean(floats, nil),
		MedianLength: stat.Quantile(0.5, stat.Empirical, floats, nil),
		MeanQuality:  stat.Mean(quals, nil),
		AlignedReads: len(alns),
	}

	if len(alns) > 0 {
		identities := make([]float64, len(alns))
		mismatches := make([]float64, len(alns))
		insertions := make([]float64, len(alns))
		deletions := make([]float64, len(alns))
		var alignedBases int64
		for i, aln := range alns {
			identities[i] = aln.MatchRate
			mismatches[i] = aln.MismatchRate
			insertions[i] = aln.InsertionRate
			deletions[i] = aln.DeletionRate
			alignedBases += int64(aln.AlignmentLength)
		}
		summary.AlignedBases = alignedBases
		summary.AlignedBasesFraction = float64(alignedBases) / float64(totalBases)
		summary.AlignedReadFraction = float64(len(alns)) / float64(len(reads))
		summary.MeanIdentity = stat.Mean(identities, nil)
		summary.MeanMismatchRate = stat.Mean(mismatches, nil)
		summary.MeanInsertionRate = stat.Mean(insertions, nil)
		summary.MeanDeletionRate = stat.Mean(deletions, nil)
	}

	return summary, nil
}
