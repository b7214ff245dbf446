package paf

import (
	"fmt"
)

// A StringScanner scans/parses ASCII strings representing lines in PAF
// files.
//
// The zero StringScanner is valid and empty.
type StringScanner struct {
	index int
	data  string
	err   error
}

// Err returns the error that occurred during scanning/parsing.
func (sc *StringScanner) Err() error {
	return sc.err
}

// Reset resets the scanner, and initializes it with the given string.
func (sc *StringScanner) Reset(s string) {
	sc.index = 0
	sc.data = s
	sc.err = nil
}

// Len returns the number of ASCII characters that still need to be
// scanned/parsed. Returns 0 if Err() would return a non-nil value.
func (sc *StringScanner) Len() int {
	if sc.err != nil {
		return 0
	}
	return len(sc.data) - sc.index
}

func (sc *StringScanner) readUntil(c byte) (s string, found bool) {
	if sc.err != nil {
		return "", false
	}
	start := sc.index
	for end := sc.index; end < len(sc.data); end++ {
		if sc.data[end] == c {
			sc.index = end + 1
			return sc.data[start:end], true
		}
	}
	sc.index = len(sc.data)
	return sc.data[start:], false
}

func (sc *StringScanner) doString() string {
	if sc.err != nil {
		return ""
	}
	value, ok := sc.readUntil('\t')
	if !ok {
		if sc.err == nil {
			sc.err = fmt.Errorf("missing tabulator in PAF record line")
		}
		return ""
	}
	return value
}

func (sc *StringScanner) doInt32() int32 {
	if sc.err != nil {
		return 0
	}
	value, err := parseInt32(sc.doString())
	if (err != nil) && (sc.err == nil) {
		sc.err = err
	}
	return value
}

func (sc *StringScanner) doChar() byte {
	if sc.err != nil {
		return 0
	}
	value := sc.doString()
	if len(value) != 1 {
		if sc.err == nil {
			sc.err = fmt.Errorf("invalid strand field %v in PAF record line", value)
		}
		return 0
	}
	return value[0]
}
