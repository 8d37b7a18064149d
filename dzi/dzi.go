// Package dzi reads and writes deep zoom descriptor files: single images (.dzi),
// HD image sets, collections (.dzc) and the collection scene files.
package dzi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Namespace is the XML namespace of deep zoom descriptors.
const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

var ErrInvalidDescriptor = errors.New("deepzoom: invalid descriptor file")

func parseInt(name, value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: attribute %v not found", ErrInvalidDescriptor, name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %v: %w", ErrInvalidDescriptor, name, err)
	}
	return v, nil
}

func parseFloat(name, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: attribute %v not found", ErrInvalidDescriptor, name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %v: %w", ErrInvalidDescriptor, name, err)
	}
	return v, nil
}

// attrParser collects the first parse error, so a sequence of attributes
// can be converted without checking each one.
type attrParser struct {
	err error
}

func (p *attrParser) int(name, value string) int {
	if p.err != nil {
		return 0
	}
	v, err := parseInt(name, value)
	p.err = err
	return v
}

func (p *attrParser) float(name, value string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := parseFloat(name, value)
	p.err = err
	return v
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeFile(path string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func unmarshal(data []byte, v any) error {
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	return nil
}
