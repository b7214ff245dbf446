// Package paf is a library for parsing PAF mapping files and deriving
// per-alignment quality statistics from them, taking advantage of
// modern multi-core processors.
//
// Record lines are parsed into alignment summaries in parallel
// batches. The RunPipeline method of InputFile drives that reduction
// over a plain or gzip-compressed PAF input and collects the results
// into a Table, from which Best selects one alignment per read. The
// parallel execution is expressed with the pargo library; it is
// normally not necessary to deal with pargo pipelines directly, but
// you can check the documentation at
// https://godoc.org/github.com/ExaScience/pargo/pipeline for details
// of pargo pipelines if necessary.
package paf
