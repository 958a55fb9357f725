// Package ingest reads the text tensor and factor-matrix file formats
// and writes the TSV factor output spec.md §6 defines, used by the CLI
// layer and by the MTTKRP verify harness.
//
// Grounded on original_source/hacoo.cpp's file_init/file_entry/
// file_entry_with_base for field order and error conditions,
// reimplemented with bufio.Scanner and strconv in place of
// fgets/strtok/fscanf: no third-party parsing library in the pack fits
// a bespoke whitespace-delimited numeric format better than
// bufio+strconv, and encoding/csv does not apply since the delimiter
// is variable whitespace rather than a fixed separator. This is the one
// package documented in DESIGN.md as stdlib-only by necessity.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pngwen/hacoo-go/hacoo"
	"github.com/pngwen/hacoo-go/matrix"
)

// ErrParse is returned for any malformed input encountered by ParseTNS
// or ReadMatrices, wrapping a line number or field description.
var ErrParse = errors.New("ingest: parse error")

// ParseTNS reads the .tns text format of spec.md §4.8: a dimensions
// header line followed by "idx... value" rows, blank and
// '#'-prefixed lines skipped. base selects 0- or 1-based coordinates;
// under base 1 every coordinate is decremented, and a coordinate of 0
// is a fatal parse error.
func ParseTNS(r io.Reader, base int) (*hacoo.Tensor, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	nextLine := func() (string, bool) {
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return line, true
		}
		return "", false
	}

	header, ok := nextLine()
	if !ok {
		return nil, fmt.Errorf("%w: line %d: missing dimensions header", ErrParse, lineNo)
	}
	fields := strings.Fields(header)
	dims := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid dimension %q: %v", ErrParse, lineNo, f, err)
		}
		dims[i] = uint32(v)
	}

	t, err := hacoo.New(dims)
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
	}

	ndims := len(dims)
	coord := make([]uint32, ndims)
	for {
		line, ok := nextLine()
		if !ok {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != ndims+1 {
			return nil, fmt.Errorf("%w: line %d: got %d fields, want %d", ErrParse, lineNo, len(fields), ndims+1)
		}
		for i := 0; i < ndims; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid coordinate %q: %v", ErrParse, lineNo, fields[i], err)
			}
			c := uint32(v)
			if base == 1 {
				if c == 0 {
					return nil, fmt.Errorf("%w: line %d: base-1 coordinate is 0 in mode %d", ErrParse, lineNo, i)
				}
				c--
			}
			coord[i] = c
		}
		value, err := strconv.ParseFloat(fields[ndims], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid value %q: %v", ErrParse, lineNo, fields[ndims], err)
		}
		if err := t.Set(coord, value); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
		}
	}

	return t, nil
}

// ReadMatrices reads repeated "rows cols" headers followed by rows*cols
// whitespace-separated doubles, the factor-matrix file format of
// spec.md §6.
func ReadMatrices(r io.Reader) ([]*matrix.Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	var out []*matrix.Matrix
	for scanner.Scan() {
		rows, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: invalid row count %q: %v", ErrParse, scanner.Text(), err)
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: missing column count", ErrParse)
		}
		cols, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: invalid column count %q: %v", ErrParse, scanner.Text(), err)
		}

		m := matrix.New(rows, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("%w: unexpected EOF reading matrix entry [%d][%d]", ErrParse, i, j)
				}
				v, err := strconv.ParseFloat(scanner.Text(), 64)
				if err != nil {
					return nil, fmt.Errorf("%w: invalid matrix entry %q: %v", ErrParse, scanner.Text(), err)
				}
				m.Set(i, j, v)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteMatrices writes matrices in the same repeated-block format
// ReadMatrices parses.
func WriteMatrices(w io.Writer, matrices []*matrix.Matrix) error {
	bw := bufio.NewWriter(w)
	for _, m := range matrices {
		if _, err := fmt.Fprintf(bw, "%d %d\n", m.Rows, m.Cols); err != nil {
			return err
		}
		for i := 0; i < m.Rows; i++ {
			row := m.Row(i)
			for j, v := range row {
				if j > 0 {
					if _, err := bw.WriteString(" "); err != nil {
						return err
					}
				}
				if _, err := fmt.Fprintf(bw, "%g", v); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFactorTSV writes m as tab-separated rows of doubles, matching
// spec.md §6's factor_mode_<k>.tsv format.
func WriteFactorTSV(w io.Writer, m *matrix.Matrix) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		for j, v := range row {
			if j > 0 {
				if _, err := bw.WriteString("\t"); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "%g", v); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteLambdaTSV writes one value per line, matching spec.md §6's
// lambdas.tsv format.
func WriteLambdaTSV(w io.Writer, lambda []float64) error {
	bw := bufio.NewWriter(w)
	for _, v := range lambda {
		if _, err := fmt.Fprintf(bw, "%g\n", v); err != nil {
			return err
		}
	}
	return bw.Flush()
}
