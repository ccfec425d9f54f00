package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
)

var (
	ErrInputNotFound = errors.New("input file not found")
	ErrInvalidJSON   = errors.New("input is not a valid JSON array")
)

// ParsedRecord is one element of the input array. Err is set when the element
// is valid JSON but does not have the shape of an employee record.
type ParsedRecord struct {
	Index  int
	Record models.EmployeeRecord
	Err    error
}

// RecordID returns the identifier of the record, or nil when it is absent.
func (p ParsedRecord) RecordID() *int64 {
	return p.Record.ID
}

type EmployeeParser struct {
	path    string
	metrics *metrics.Metrics
}

type EmployeeParserIface interface {
	ParseEmployees(ctx context.Context) ([]ParsedRecord, error)
}

func NewEmployeeParser(path string, metrics *metrics.Metrics) EmployeeParserIface {
	return &EmployeeParser{path: path, metrics: metrics}
}

// ParseEmployees reads the whole input file and splits it into records.
func (ep *EmployeeParser) ParseEmployees(ctx context.Context) ([]ParsedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parsing cancelled: %w", err)
	}

	file, err := os.Open(ep.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, ep.path)
		}
		return nil, fmt.Errorf("failed to open input file %s: %w", ep.path, err)
	}
	defer file.Close()

	return ParseEmployeesFromReader(file, ep.metrics)
}

// ParseEmployeesFromReader decodes a JSON array of employee records.
// A document that is not an array fails as a whole; elements that cannot be
// decoded into a record are returned with Err set so the caller can skip them.
func ParseEmployeesFromReader(in io.Reader, metric *metrics.Metrics) ([]ParsedRecord, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("%w: top-level value is null", ErrInvalidJSON)
	}

	var elements []json.RawMessage
	if err = json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	records := make([]ParsedRecord, 0, len(elements))
	for idx, element := range elements {
		records = append(records, decodeRecord(idx, element))
		if metric != nil {
			metric.ItemsParsed.WithLabelValues("employee").Inc()
		}
	}

	return records, nil
}

func decodeRecord(idx int, element json.RawMessage) ParsedRecord {
	parsed := ParsedRecord{Index: idx}

	if err := json.Unmarshal(element, &parsed.Record); err != nil {
		// keep the id when only other fields are broken, it is all the logs have to go on
		var idOnly struct {
			ID *int64 `json:"id"`
		}
		parsed.Record = models.EmployeeRecord{}
		if idErr := json.Unmarshal(element, &idOnly); idErr == nil {
			parsed.Record.ID = idOnly.ID
		}
		parsed.Err = fmt.Errorf("failed to decode record at index %d: %w", idx, err)
	}

	return parsed
}
