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
	"compress/gzip"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var testCsStrings = []string{
	":5*ac:3-tt+g:2",
	":100",
	"*ac*gt:17+acgt",
	"=ACGTACGT-ccc:42",
	":7*tg:7*ga:7",
}

func writeTestPaf(t *testing.T, records int) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "elqc-paf")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	name := filepath.Join(dir, "test.paf")
	var lines strings.Builder
	for i := 0; i < records; i++ {
		cs := testCsStrings[i%len(testCsStrings)]
		fmt.Fprintf(&lines, "read%d\t1000\t%d\t%d\t+\ttarget%d\t50000\t%d\t%d\t42\tcs:Z:%s\n",
			i, i%10, 900+i%100, i%7, 10*i, 10*i+900, cs)
	}
	if err := ioutil.WriteFile(name, []byte(lines.String()), 0666); err != nil {
		t.Fatal(err)
	}
	return name
}

func runTestPipeline(t *testing.T, name string) *Table {
	t.Helper()
	input, err := Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := input.Close(); err != nil {
			t.Error(err)
		}
	}()
	table := &Table{}
	if err := input.RunPipeline(table, 0); err != nil {
		t.Fatal(err)
	}
	return table
}

func summarySet(t *testing.T, table *Table) map[string]AlignmentSummary {
	t.Helper()
	set := make(map[string]AlignmentSummary, len(table.Summaries))
	for _, sum := range table.Summaries {
		if _, present := set[sum.ReadName]; present {
			t.Fatal("duplicate read name in test input", sum.ReadName)
		}
		set[sum.ReadName] = *sum
	}
	return set
}

func TestRunPipeline(t *testing.T) {
	name := writeTestPaf(t, 10000)
	table := runTestPipeline(t, name)
	if len(table.Summaries) != 10000 {
		t.Error("unexpected number of summaries", len(table.Summaries))
	}
	if table.Drops.Total() != 0 {
		t.Error("unexpected drops", table.Drops)
	}
}

// Processing with 1 worker vs N workers must yield identical summary
// sets; only the order across chunks and batches may differ.
func TestRunPipelineWorkerEquivalence(t *testing.T) {
	name := writeTestPaf(t, 20000)
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(0))
	runtime.GOMAXPROCS(1)
	reference := summarySet(t, runTestPipeline(t, name))
	for _, workers := range []int{2, 4, 8} {
		runtime.GOMAXPROCS(workers)
		set := summarySet(t, runTestPipeline(t, name))
		if len(set) != len(reference) {
			t.Fatal("summary set size differs with", workers, "workers")
		}
		for readName, sum := range reference {
			if set[readName] != sum {
				t.Error("summary for", readName, "differs with", workers, "workers")
			}
		}
	}
}

func TestRunPipelineDrops(t *testing.T) {
	dir, err := ioutil.TempDir("", "elqc-paf")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	name := filepath.Join(dir, "drops.paf")
	contents := "read0\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tcs:Z::900\n" +
		"malformed line\n" +
		"read1\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tNM:i:4\n" +
		"read2\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tcs:Z::70000\n" +
		"read3\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tcs:Z:~gt12ac\n" +
		"read4\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tcs:Z::450?:450\n"
	if err := ioutil.WriteFile(name, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	table := runTestPipeline(t, name)
	if len(table.Summaries) != 2 {
		t.Fatal("unexpected number of summaries", len(table.Summaries))
	}
	if table.Drops.MalformedRecords != 1 ||
		table.Drops.MissingCsTags != 1 ||
		table.Drops.LengthOverflows != 1 ||
		table.Drops.EmptyAlignments != 1 {
		t.Error("unexpected drop counters", table.Drops)
	}
	if table.Drops.Total() != 4 {
		t.Error("unexpected drop total", table.Drops.Total())
	}
	// Only records that produce a summary contribute skipped bytes;
	// the record for read4 has one unrecognized byte.
	if table.Drops.SkippedCsBytes != 1 {
		t.Error("unexpected skipped cs bytes", table.Drops.SkippedCsBytes)
	}
}

func TestRunPipelineMissingCsIsSystemic(t *testing.T) {
	dir, err := ioutil.TempDir("", "elqc-paf")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	name := filepath.Join(dir, "nocs.paf")
	contents := "read0\t1000\t0\t900\t+\ttarget\t50000\t0\t900\tNM:i:4\n" +
		"read1\t1000\t0\t900\t+\ttarget\t50000\t0\t900\n"
	if err := ioutil.WriteFile(name, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	input, err := Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = input.Close() }()
	table := &Table{}
	if err := input.RunPipeline(table, 0); err == nil {
		t.Error("expected an error for a dataset entirely without cs tags")
	}
}

func TestOpenGzip(t *testing.T) {
	plain := writeTestPaf(t, 500)
	contents, err := ioutil.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}
	name := plain + ".gz"
	file, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(file)
	if _, err := zw.Write(contents); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	reference := summarySet(t, runTestPipeline(t, plain))
	set := summarySet(t, runTestPipeline(t, name))
	if len(set) != len(reference) {
		t.Fatal("summary set size differs for gzip input")
	}
	for readName, sum := range reference {
		if set[readName] != sum {
			t.Error("summary for", readName, "differs for gzip input")
		}
	}
}
