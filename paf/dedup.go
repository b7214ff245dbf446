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
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/exascience/pargo/parallel"
	"github.com/exascience/pargo/sync"

	"github.com/exascience/elqc/internal"
)

type readName string

func (n readName) Hash() uint64 {
	return internal.StringHash(string(n))
}

type handle struct {
	object unsafe.Pointer
}

func newSummaryHandle(sum *AlignmentSummary) *handle {
	return &handle{unsafe.Pointer(sum)}
}

func (h *handle) summary() *AlignmentSummary {
	return (*AlignmentSummary)(atomic.LoadPointer(&h.object))
}

func (h *handle) compareAndSwapSummary(old, new *AlignmentSummary) bool {
	return atomic.CompareAndSwapPointer(&h.object, unsafe.Pointer(old), unsafe.Pointer(new))
}

// classifyBest keeps the summary with the maximum aligned fraction per
// read name. On equal aligned fractions the summary already stored
// wins, so a tie keeps the first-seen entry of the classification
// order.
func classifyBest(sum *AlignmentSummary, best *sync.Map) {
	entry, found := best.LoadOrStore(readName(sum.ReadName), newSummaryHandle(sum))
	if !found {
		return
	}
	h := entry.(*handle)
	for {
		bestSum := h.summary()
		if bestSum.AlignedFraction >= sum.AlignedFraction {
			sum.duplicate = true
			break
		} else if h.compareAndSwapSummary(bestSum, sum) {
			bestSum.duplicate = true
			break
		}
	}
}

// MarkSecondary marks all summaries of the table that are not the best
// alignment of their read. Secondary and supplementary records the
// upstream mapper configuration may still emit produce multiple
// summaries per read name; exactly one per read name stays unmarked.
//
// Since batch/chunk order of the table is not guaranteed, ties among
// equal aligned fractions may resolve differently across runs. That is
// a documented property of the input ordering, not of this selector.
func (table *Table) MarkSecondary() {
	splits := 16 * runtime.GOMAXPROCS(0)
	best := sync.NewMap(splits)
	sums := table.Summaries
	parallel.Range(0, len(sums), 0, func(low, high int) {
		for _, sum := range sums[low:high] {
			classifyBest(sum, best)
		}
	})
}

// Best returns the deduplicated table contents: exactly one alignment
// summary per read name, the one with the maximum aligned fraction.
func (table *Table) Best() []*AlignmentSummary {
	table.MarkSecondary()
	result := make([]*AlignmentSummary, 0, len(table.Summaries))
	for _, sum := range table.Summaries {
		if !sum.duplicate {
			result = append(result, sum)
		}
	}
	return result
}
