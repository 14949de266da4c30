package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	data := "test message"

	output, err := formatter.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "test message\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}
}

func TestTextFormatterWriter(t *testing.T) {
	formatter := &TextFormatter{}
	data := "test message"
	buf := &bytes.Buffer{}

	err := formatter.FormatTo(buf, data)
	if err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	expected := "test message\n"
	if buf.String() != expected {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), expected)
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   interface{}
		indent bool
	}{
		{
			name:   "simple string",
			data:   "test",
			indent: false,
		},
		{
			name: "map with indent",
			data: map[string]string{
				"key": "value",
			},
			indent: true,
		},
		{
			name: "struct",
			data: struct {
				Name  string `json:"name"`
				Value int    `json:"value"`
			}{
				Name:  "test",
				Value: 42,
			},
			indent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			// Verify it's valid JSON by unmarshaling
			var result interface{}
			if err := json.Unmarshal(output, &result); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestJSONFormatterWriter(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	data := map[string]string{"test": "value"}
	buf := &bytes.Buffer{}

	err := formatter.FormatTo(buf, data)
	if err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	// Verify valid JSON
	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("FormatTo() produced invalid JSON: %v", err)
	}

	if result["test"] != "value" {
		t.Errorf("FormatTo() = %v, want %v", result, data)
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{
		Headers: []string{"id", "state"},
	}
	rows := [][]string{
		{"part_00000000", "active"},
		{"part_00000001", "retired"},
	}

	output, err := formatter.Format(rows)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	// Parse it back to verify header plus rows round-trip.
	parsed, err := csv.NewReader(bytes.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("Format() produced invalid CSV: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed %d CSV rows, want 3", len(parsed))
	}
	if parsed[0][0] != "id" {
		t.Errorf("header = %v, want id first", parsed[0])
	}
	if parsed[2][1] != "retired" {
		t.Errorf("last row = %v, want retired state", parsed[2])
	}
}

func TestCSVFormatterQuoting(t *testing.T) {
	formatter := &CSVFormatter{}
	rows := [][]string{{"a,b", "line\nbreak"}}

	output, err := formatter.Format(rows)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(string(output), `"a,b"`) {
		t.Errorf("embedded comma not quoted: %q", string(output))
	}
}

func TestCSVFormatterRejectsNonRows(t *testing.T) {
	formatter := &CSVFormatter{}

	if _, err := formatter.Format(map[string]string{"not": "rows"}); err == nil {
		t.Error("Format() should reject non-row data")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{
			name:   "text formatter",
			format: FormatText,
			want:   "*cli.TextFormatter",
		},
		{
			name:   "json formatter",
			format: FormatJSON,
			want:   "*cli.JSONFormatter",
		},
		{
			name:   "csv formatter",
			format: FormatCSV,
			want:   "*cli.CSVFormatter",
		},
		{
			name:   "default to text",
			format: "unknown",
			want:   "*cli.TextFormatter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format)
			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		allowed []OutputFormat
		want    OutputFormat
		wantErr bool
	}{
		{
			name:    "empty selects text",
			value:   "",
			allowed: []OutputFormat{FormatText, FormatJSON},
			want:    FormatText,
		},
		{
			name:    "allowed format",
			value:   "json",
			allowed: []OutputFormat{FormatText, FormatJSON},
			want:    FormatJSON,
		},
		{
			name:    "csv when permitted",
			value:   "csv",
			allowed: []OutputFormat{FormatText, FormatJSON, FormatCSV},
			want:    FormatCSV,
		},
		{
			name:    "csv rejected for report commands",
			value:   "csv",
			allowed: []OutputFormat{FormatText, FormatJSON},
			wantErr: true,
		},
		{
			name:    "unknown format",
			value:   "yaml",
			allowed: []OutputFormat{FormatText, FormatJSON, FormatCSV},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.value, tt.allowed...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOutputFormat(%q) should fail", tt.value)
				}
				var flagErr *FlagError
				if !errors.As(err, &flagErr) {
					t.Errorf("error type = %T, want *FlagError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutputFormat(%q) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseOutputFormatErrorNamesAllowed(t *testing.T) {
	_, err := ParseOutputFormat("yaml", FormatText, FormatJSON)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	msg := err.Error()
	if !strings.Contains(msg, "text, json") {
		t.Errorf("error should list allowed formats, got %q", msg)
	}
	if strings.Contains(msg, "csv") {
		t.Errorf("error should not offer csv when not allowed, got %q", msg)
	}
}
