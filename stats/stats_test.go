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

package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elqc/fastq"
	"github.com/exascience/elqc/paf"
)

func TestN50(t *testing.T) {
	// total 54, half 27; descending prefix sums 10, 19, 27 reach the
	// half at length 8
	assert.Equal(t, int32(8), N50([]int32{2, 3, 4, 5, 6, 7, 8, 9, 10}))

	assert.Equal(t, int32(42), N50([]int32{42}))
	assert.Equal(t, int32(10), N50([]int32{10, 10, 10}))
	assert.Equal(t, int32(100), N50([]int32{100, 1, 1, 1}))

	assert.Panics(t, func() { N50(nil) })
}

func TestN50Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		lengths := make([]int32, 1+rnd.Intn(10000))
		var max int32
		for j := range lengths {
			lengths[j] = 1 + rnd.Int31n(100000)
			if lengths[j] > max {
				max = lengths[j]
			}
		}
		n50 := N50(lengths)
		summary, err := Compute(readsOfLengths(lengths), nil)
		require.NoError(t, err)
		assert.True(t, float64(n50) >= summary.MedianLength, "N50 below median")
		assert.True(t, n50 <= max, "N50 above max")
	}
}

func readsOfLengths(lengths []int32) []fastq.ReadInfo {
	reads := make([]fastq.ReadInfo, len(lengths))
	for i, length := range lengths {
		reads[i] = fastq.ReadInfo{Name: "read", Length: length, AvgQual: 10}
	}
	return reads
}

func TestComputeEmpty(t *testing.T) {
	_, err := Compute(nil, nil)
	assert.Equal(t, ErrEmptyDataset, err)
}

func TestCompute(t *testing.T) {
	reads := []fastq.ReadInfo{
		{Name: "read1", Length: 1000, AvgQual: 10},
		{Name: "read2", Length: 2000, AvgQual: 12},
		{Name: "read3", Length: 3000, AvgQual: 14},
		{Name: "read4", Length: 4000, AvgQual: 16},
	}
	alns := []*paf.AlignmentSummary{
		{ReadName: "read2", AlignmentLength: 1800, AlignedFraction: 0.9,
			MatchRate: 90, MismatchRate: 4, InsertionRate: 3, DeletionRate: 3},
		{ReadName: "read4", AlignmentLength: 4200, AlignedFraction: 0.99,
			MatchRate: 94, MismatchRate: 2, InsertionRate: 2, DeletionRate: 2},
	}

	summary, err := Compute(reads, alns)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Reads)
	assert.Equal(t, int64(10000), summary.TotalBases)
	assert.Equal(t, int32(4000), summary.MaxLength)
	assert.Equal(t, int32(3000), summary.N50)
	assert.InDelta(t, 2500, summary.MeanLength, 1e-9)
	assert.InDelta(t, 13, summary.MeanQuality, 1e-9)

	assert.Equal(t, 2, summary.AlignedReads)
	assert.InDelta(t, 0.5, summary.AlignedReadFraction, 1e-9)
	assert.Equal(t, int64(6000), summary.AlignedBases)
	assert.InDelta(t, 0.6, summary.AlignedBasesFraction, 1e-9)
	assert.InDelta(t, 92, summary.MeanIdentity, 1e-9)
	assert.InDelta(t, 3, summary.MeanMismatchRate, 1e-9)
	assert.InDelta(t, 2.5, summary.MeanInsertionRate, 1e-9)
	assert.InDelta(t, 2.5, summary.MeanDeletionRate, 1e-9)
}

func TestComputeWithoutAlignments(t *testing.T) {
	summary, err := Compute(readsOfLengths([]int32{100, 200}), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.AlignedReads)
	assert.Equal(t, int64(0), summary.AlignedBases)
	assert.Equal(t, float64(0), summary.AlignedBasesFraction)
	assert.Equal(t, float64(0), summary.MeanIdentity)
}
