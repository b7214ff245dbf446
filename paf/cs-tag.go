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
	"errors"
	"strconv"
)

// Edit operation kinds produced by decoding a cs difference string.
const (
	Match     = 'M'
	Mismatch  = 'X'
	Insertion = 'I'
	Deletion  = 'D'
)

// An EditOperation is one decoded token of a cs difference string. The
// length always fits 16 bits, which keeps the in-memory representation
// compact for very large record counts; records with longer operations
// are rejected with ErrLengthOverflow.
type EditOperation struct {
	Length    uint16
	Operation byte
}

// ErrLengthOverflow is returned when a single edit operation in a cs
// string is longer than 65535. The enclosing alignment record is
// dropped.
var ErrLengthOverflow = errors.New("edit operation length exceeds the 16-bit range")

const maxOperationLength = 1<<16 - 1

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

func isLower(char byte) bool { return ('a' <= char) && (char <= 'z') }

func isBase(char byte) bool {
	return (('A' <= char) && (char <= 'Z')) || (('a' <= char) && (char <= 'z'))
}

// ScanCsTag decodes a cs difference string into a sequence of edit
// operations, preserving input order. Recognized tokens are :<int> (run
// of matches), *<base><base> (single mismatch), -<bases> (deletion),
// +<bases> (insertion), and the long-form =<bases> (run of matches with
// explicit sequence). Bytes that do not start a recognized token are
// skipped; skipped reports how many bytes were ignored that way so
// callers can surface the loss.
//
// The scan is a single linear pass with no backtracking.
func ScanCsTag(cs string) (ops []EditOperation, skipped int, err error) {
	for i := 0; i < len(cs); {
		switch cs[i] {
		case ':':
			j := i + 1
			for j < len(cs) && isDigit(cs[j]) {
				j++
			}
			if j == i+1 {
				skipped++
				i++
				continue
			}
			length, nerr := strconv.ParseUint(cs[i+1:j], 10, 16)
			if nerr != nil {
				return nil, skipped, ErrLengthOverflow
			}
			ops = append(ops, EditOperation{uint16(length), Match})
			i = j
		case '*':
			if i+2 < len(cs) && isLower(cs[i+1]) && isLower(cs[i+2]) {
				ops = append(ops, EditOperation{1, Mismatch})
				i += 3
			} else {
				skipped++
				i++
			}
		case '+', '-', '=':
			j := i + 1
			for j < len(cs) && isBase(cs[j]) {
				j++
			}
			length := j - i - 1
			if length == 0 {
				skipped++
				i++
				continue
			}
			if length > maxOperationLength {
				return nil, skipped, ErrLengthOverflow
			}
			var operation byte
			switch cs[i] {
			case '+':
				operation = Insertion
			case '-':
				operation = Deletion
			default:
				operation = Match
			}
			ops = append(ops, EditOperation{uint16(length), operation})
			i = j
		default:
			skipped++
			i++
		}
	}
	return ops, skipped, nil
}
