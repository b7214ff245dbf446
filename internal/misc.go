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

package internal

import (
	"io"
	"log"
	"os"
)

// FileCreate is os.Create with panics in place of errors
func FileCreate(name string) *os.File {
	file, err := os.Create(name)
	if err != nil {
		log.Panic(err)
	}
	return file
}

// MkdirAll is os.MkdirAll with panics in place of errors
func MkdirAll(path string, perm os.FileMode) {
	if err := os.MkdirAll(path, perm); err != nil {
		log.Panic(err)
	}
}

// Close is closer.Close() with panics in place of errors
func Close(closer io.Closer) {
	if err := closer.Close(); err != nil {
		log.Panic(err)
	}
}
