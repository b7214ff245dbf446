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

// Package fastq extracts per-read lengths and mean base qualities from
// FASTQ or FASTA files. It is a straight streaming scan; every
// sequenced read appears in the resulting table, whether it has an
// alignment or not.
package fastq

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// A ReadInfo is one row of the read-length table.
type ReadInfo struct {
	Name    string
	Length  int32
	AvgQual float64 // 0 for FASTA input
}

var phredErrorTable [256]float64

func init() {
	for char := 33; char < 256; char++ {
		phredErrorTable[char] = math.Pow(10, -float64(char-33)/10)
	}
}

// averageQuality averages base qualities in probability space and
// converts the result back to the phred scale.
func averageQuality(qual []byte) float64 {
	if len(qual) == 0 {
		return 0
	}
	var sum float64
	for _, char := range qual {
		sum += phredErrorTable[char]
	}
	return -10 * math.Log10(sum/float64(len(qual)))
}

func readName(header []byte) string {
	for i := 1; i < len(header); i++ {
		if c := header[i]; c == ' ' || c == '\t' {
			return string(header[1:i])
		}
	}
	return string(header[1:])
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

// ReadTable scans a FASTQ or FASTA file, possibly gzip compressed, and
// returns one row per read. The format is detected from the first
// record byte. FASTQ records are expected in their four-line form, the
// one long-read basecallers emit.
func ReadTable(name string) (table []ReadInfo, err error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		nerr := file.Close()
		if err == nil {
			err = nerr
		}
	}()

	var buf *bufio.Reader
	if filepath.Ext(name) == ".gz" {
		gz, gerr := gzip.NewReader(bufio.NewReader(file))
		if gerr != nil {
			return nil, gerr
		}
		defer func() {
			nerr := gz.Close()
			if err == nil {
				err = nerr
			}
		}()
		buf = bufio.NewReader(gz)
	} else {
		buf = bufio.NewReader(file)
	}

	first, err := buf.Peek(1)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty sequence file %v", name)
		}
		return nil, err
	}
	switch first[0] {
	case '@':
		return scanFastq(buf, name)
	case '>':
		return scanFasta(buf, name)
	default:
		return nil, fmt.Errorf("unrecognized sequence file format in %v", name)
	}
}

func readLine(buf *bufio.Reader) ([]byte, error) {
	line, err := buf.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(line) == 0 && err == io.EOF {
		return nil, io.EOF
	}
	return trimNewline(line), nil
}

func scanFastq(buf *bufio.Reader, name string) (table []ReadInfo, err error) {
	for {
		header, err := readLine(buf)
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, err
		}
		if len(header) == 0 {
			continue
		}
		if header[0] != '@' {
			return nil, fmt.Errorf("malformed FASTQ record header %v in %v", string(header), name)
		}
		seq, err := readLine(buf)
		if err != nil {
			return nil, fmt.Errorf("truncated FASTQ record for %v in %v", readName(header), name)
		}
		if _, err := readLine(buf); err != nil { // the + separator line
			return nil, fmt.Errorf("truncated FASTQ record for %v in %v", readName(header), name)
		}
		qual, err := readLine(buf)
		if err != nil {
			return nil, fmt.Errorf("truncated FASTQ record for %v in %v", readName(header), name)
		}
		if len(qual) != len(seq) {
			return nil, fmt.Errorf("sequence and quality lengths differ for %v in %v", readName(header), name)
		}
		table = append(table, ReadInfo{
			Name:    readName(header),
			Length:  int32(len(seq)),
			AvgQual: averageQuality(qual),
		})
	}
}

func scanFasta(buf *bufio.Reader, name string) (table []ReadInfo, err error) {
	var current string
	var length int32
	flush := func() {
		if current != "" {
			table = append(table, ReadInfo{Name: current, Length: length})
		}
	}
	for {
		line, err := readLine(buf)
		if err == io.EOF {
			flush()
			return table, nil
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			current = readName(line)
			length = 0
		} else {
			length += int32(len(line))
		}
	}
}
