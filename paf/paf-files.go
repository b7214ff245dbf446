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
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// PAF file extensions.
const (
	PafExt  = ".paf"
	GzipExt = ".gz"
)

// InputFile represents a PAF file for input, possibly gzip compressed.
// It acts as a pargo pipeline.Source that produces batches of record
// lines.
type InputFile struct {
	rc   io.Closer
	gz   *gzip.Reader
	buf  *bufio.Reader
	data interface{}
	err  error
}

// Open a PAF file for input.
//
// If the filename extension is .gz, the contents are decompressed
// while reading.
//
// If the name is "/dev/stdin", then the input is read from os.Stdin.
func Open(name string) (*InputFile, error) {
	var file *os.File
	if name == "/dev/stdin" {
		file = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		file = f
	}
	if filepath.Ext(name) == GzipExt {
		gz, err := gzip.NewReader(bufio.NewReader(file))
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		return &InputFile{rc: file, gz: gz, buf: bufio.NewReader(gz)}, nil
	}
	return &InputFile{rc: file, buf: bufio.NewReader(file)}, nil
}

// Close closes the PAF input file.
func (f *InputFile) Close() error {
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			return err
		}
	}
	if f.rc != os.Stdin {
		return f.rc.Close()
	}
	return nil
}

// Err implements the method of the pipeline.Source interface. It
// reports stream-level read failures, which abort the whole run.
func (f *InputFile) Err() error {
	return f.err
}

// Prepare implements the method of the pipeline.Source interface.
func (*InputFile) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the method of the pipeline.Source interface. It
// reads up to size record lines, without their line terminators.
func (f *InputFile) Fetch(size int) (fetched int) {
	var lines [][]byte
	for fetched = 0; fetched < size; {
		line, err := f.buf.ReadBytes('\n')
		if err != nil && err != io.EOF {
			f.err = err
			break
		}
		line = trimNewline(line)
		if len(line) > 0 {
			lines = append(lines, line)
			fetched++
		}
		if err == io.EOF {
			break
		}
	}
	f.data = lines
	return fetched
}

// Data implements the method of the pipeline.Source interface.
func (f *InputFile) Data() interface{} {
	return f.data
}

func trimNewline(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
