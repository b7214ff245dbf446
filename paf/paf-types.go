package paf

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/exascience/elqc/utils"
)

func parseInt32(s string) (int32, error) {
	value, err := strconv.ParseInt(s, 10, 32)
	return int32(value), err
}

// A Record is one line of a PAF mapping file: the nine positional
// fields, plus the keyed optional fields of the form KK:T:VALUE. Only
// the cs field is interpreted; all other keyed fields are retained as
// raw strings.
type Record struct {
	QName   string
	QLength int32
	QStart  int32
	QEnd    int32
	Strand  byte
	TName   string
	TLength int32
	TStart  int32
	TEnd    int32
	Tags    utils.SmallMap
}

var csTag = utils.Intern("cs")

// CsTag returns the decoded-format difference string of the record,
// with the type byte stripped, and whether the cs field was present at
// all.
func (rec *Record) CsTag() (string, bool) {
	value, ok := rec.Tags.Get(csTag)
	if !ok {
		return "", false
	}
	s := value.(string)
	if len(s) >= 2 && s[1] == ':' {
		return s[2:], true
	}
	return s, true
}

// NewRecord allocates a Record with room for a few keyed fields.
func NewRecord() *Record {
	return &Record{Tags: make(utils.SmallMap, 0, 8)}
}

// ParseRecord parses one PAF record line. The scanner must have been
// Reset with the line contents, without the trailing newline.
//
// Fields beyond the positional nine that do not have the KK:T:VALUE
// shape (such as the unkeyed numeric columns some mappers emit) are
// skipped.
func (sc *StringScanner) ParseRecord() (*Record, error) {
	rec := NewRecord()

	rec.QName = sc.doString()
	rec.QLength = sc.doInt32()
	rec.QStart = sc.doInt32()
	rec.QEnd = sc.doInt32()
	rec.Strand = sc.doChar()
	rec.TName = sc.doString()
	rec.TLength = sc.doInt32()
	rec.TStart = sc.doInt32()
	rec.TEnd, _ = parseLastInt32(sc)

	if sc.err != nil {
		return nil, sc.err
	}

	for sc.Len() > 0 {
		field, _ := sc.readUntil('\t')
		if len(field) >= 5 && field[2] == ':' && field[4] == ':' {
			rec.Tags.Set(utils.Intern(field[:2]), field[3:])
		}
	}

	if rec.QLength <= 0 {
		return nil, fmt.Errorf("nonpositive query length %v in PAF record for %v", rec.QLength, rec.QName)
	}
	if rec.QStart < 0 || rec.QEnd < rec.QStart || rec.QEnd > rec.QLength {
		return nil, fmt.Errorf("invalid query interval [%v,%v) in PAF record for %v", rec.QStart, rec.QEnd, rec.QName)
	}

	return rec, nil
}

// parseLastInt32 reads an int32 field that may be the last field on the
// line, in which case no tabulator follows it.
func parseLastInt32(sc *StringScanner) (int32, bool) {
	if sc.err != nil {
		return 0, false
	}
	value, found := sc.readUntil('\t')
	result, err := parseInt32(value)
	if (err != nil) && (sc.err == nil) {
		sc.err = err
	}
	return result, found
}

// An AlignmentSummary holds the per-record statistics derived from one
// alignment record. It is created once by the record parser and never
// modified afterwards; the unexported duplicate mark is bookkeeping
// owned by the best-alignment selector.
type AlignmentSummary struct {
	ReadName        string
	AlignmentLength int32
	AlignedFraction float64
	ErrorRate       float64
	MatchRate       float64
	MismatchRate    float64
	InsertionRate   float64
	DeletionRate    float64
	TName           string
	TStart          int32
	TEnd            int32
	SkippedCsBytes  int32

	duplicate bool
}

// Per-record conditions that drop a record without failing the run.
var (
	// ErrMissingCs is returned for records without a cs keyed field.
	ErrMissingCs = errors.New("cs tag missing in PAF record")

	// ErrEmptyAlignment is returned when a cs field decodes to an
	// alignment of length zero, which carries no identity statistic.
	ErrEmptyAlignment = errors.New("cs tag decodes to an empty alignment")
)

// Summarize reduces the decoded edit operations of the record into an
// AlignmentSummary. The four rates are computed from one snapshot of
// the per-kind totals, so they always sum to 100 up to floating-point
// rounding.
func (rec *Record) Summarize() (*AlignmentSummary, error) {
	cs, ok := rec.CsTag()
	if !ok {
		return nil, ErrMissingCs
	}
	ops, skipped, err := ScanCsTag(cs)
	if err != nil {
		return nil, err
	}

	var match, mismatch, insertion, deletion int64
	for _, op := range ops {
		length := int64(op.Length)
		switch op.Operation {
		case Match:
			match += length
		case Mismatch:
			mismatch += length
		case Insertion:
			insertion += length
		case Deletion:
			deletion += length
		}
	}

	alignmentLength := match + mismatch + insertion + deletion
	if alignmentLength == 0 {
		return nil, ErrEmptyAlignment
	}

	total := float64(alignmentLength)
	return &AlignmentSummary{
		ReadName:        rec.QName,
		AlignmentLength: int32(alignmentLength),
		AlignedFraction: float64(rec.QEnd-rec.QStart) / float64(rec.QLength),
		ErrorRate:       (1 - float64(match)/total) * 100,
		MatchRate:       float64(match) / total * 100,
		MismatchRate:    float64(mismatch) / total * 100,
		InsertionRate:   float64(insertion) / total * 100,
		DeletionRate:    float64(deletion) / total * 100,
		TName:           rec.TName,
		TStart:          rec.TStart,
		TEnd:            rec.TEnd,
		SkippedCsBytes:  int32(skipped),
	}, nil
}
