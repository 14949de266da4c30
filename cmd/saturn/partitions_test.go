package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/expiry"
)

func TestParseStates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "active", 1, false},
		{"multiple", "planned,active", 2, false},
		{"surrounding spaces", " retiring , retired ", 2, false},
		{"unknown state", "bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states, err := parseStates(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseStates(%q) expected error, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStates(%q) failed: %v", tt.input, err)
			}
			if len(states) != tt.want {
				t.Errorf("parseStates(%q) = %d states, want %d", tt.input, len(states), tt.want)
			}
		})
	}
}

type partitionsDocument struct {
	Total      int                `json:"total_partitions"`
	Partitions []partitionListing `json:"partitions"`
}

func readPartitionsDocument(t *testing.T, path string) partitionsDocument {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read partitions file: %v", err)
	}
	var doc partitionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse partitions file: %v", err)
	}
	return doc
}

func TestListPartitionsAfterMaintenance(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeSQLiteConfig(t, tmpDir))

	// Seed the catalog with one maintenance cycle.
	maintainFlags.at = "2024-01-01T00:00:00Z"
	maintainFlags.format = "json"
	maintainFlags.output = filepath.Join(tmpDir, "seed.json")
	if err := runMaintain(nil, []string{}); err != nil {
		t.Fatalf("runMaintain() failed: %v", err)
	}

	outPath := filepath.Join(tmpDir, "partitions.json")
	partitionsFlags.states = ""
	partitionsFlags.counts = true
	partitionsFlags.format = "json"
	partitionsFlags.output = outPath

	if err := listPartitions(nil, []string{}); err != nil {
		t.Fatalf("listPartitions() failed: %v", err)
	}

	doc := readPartitionsDocument(t, outPath)
	if doc.Total != 4 {
		t.Fatalf("listed %d partitions, want 4", doc.Total)
	}

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	width := 720 * time.Hour
	for i, part := range doc.Partitions {
		if part.State != expiry.StateActive {
			t.Errorf("partition %s state = %s, want active", part.ID, part.State)
		}
		if part.Rows == nil || *part.Rows != 0 {
			t.Errorf("partition %s should report zero rows", part.ID)
		}
		wantStart := epoch.Add(time.Duration(i) * width)
		if !part.Start.Equal(wantStart) {
			t.Errorf("partition %s start = %v, want %v", part.ID, part.Start, wantStart)
		}
		if !part.End.Equal(wantStart.Add(width)) {
			t.Errorf("partition %s end = %v, want %v", part.ID, part.End, wantStart.Add(width))
		}
	}
}

func TestListPartitionsStateFilter(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeSQLiteConfig(t, tmpDir))

	maintainFlags.at = "2024-01-01T00:00:00Z"
	maintainFlags.format = "json"
	maintainFlags.output = filepath.Join(tmpDir, "seed.json")
	if err := runMaintain(nil, []string{}); err != nil {
		t.Fatalf("runMaintain() failed: %v", err)
	}

	// Nothing is retired yet.
	retiredPath := filepath.Join(tmpDir, "retired.json")
	partitionsFlags.states = "retired"
	partitionsFlags.counts = false
	partitionsFlags.format = "json"
	partitionsFlags.output = retiredPath

	if err := listPartitions(nil, []string{}); err != nil {
		t.Fatalf("listPartitions() failed: %v", err)
	}
	if doc := readPartitionsDocument(t, retiredPath); doc.Total != 0 {
		t.Errorf("fresh catalog lists %d retired partitions, want 0", doc.Total)
	}

	// All four are active.
	activePath := filepath.Join(tmpDir, "active.json")
	partitionsFlags.states = "active"
	partitionsFlags.output = activePath

	if err := listPartitions(nil, []string{}); err != nil {
		t.Fatalf("listPartitions() failed: %v", err)
	}
	if doc := readPartitionsDocument(t, activePath); doc.Total != 4 {
		t.Errorf("catalog lists %d active partitions, want 4", doc.Total)
	}
}

func TestListPartitionsCSV(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeSQLiteConfig(t, tmpDir))

	maintainFlags.at = "2024-01-01T00:00:00Z"
	maintainFlags.format = "json"
	maintainFlags.output = filepath.Join(tmpDir, "seed.json")
	if err := runMaintain(nil, []string{}); err != nil {
		t.Fatalf("runMaintain() failed: %v", err)
	}

	outPath := filepath.Join(tmpDir, "partitions.csv")
	partitionsFlags.states = ""
	partitionsFlags.counts = false
	partitionsFlags.format = "csv"
	partitionsFlags.output = outPath

	if err := listPartitions(nil, []string{}); err != nil {
		t.Fatalf("listPartitions() failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read partitions file: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	// Header plus four partitions.
	if len(records) != 5 {
		t.Fatalf("CSV has %d rows, want 5", len(records))
	}
	if records[0][0] != "id" {
		t.Errorf("CSV header = %v, want id first", records[0])
	}
	if records[1][0] != "part_00000000" {
		t.Errorf("first partition = %q, want part_00000000", records[1][0])
	}
	if records[1][3] != "active" {
		t.Errorf("first partition state = %q, want active", records[1][3])
	}
}

func TestListPartitionsTextEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeMemoryConfig(t, tmpDir))

	outPath := filepath.Join(tmpDir, "partitions.txt")
	partitionsFlags.states = ""
	partitionsFlags.counts = false
	partitionsFlags.format = "text"
	partitionsFlags.output = outPath

	if err := listPartitions(nil, []string{}); err != nil {
		t.Fatalf("listPartitions() failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read partitions file: %v", err)
	}
	if !strings.Contains(string(data), "No partitions found") {
		t.Errorf("empty catalog output missing placeholder:\n%s", string(data))
	}
}

func TestListPartitionsUnknownState(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeMemoryConfig(t, tmpDir))

	partitionsFlags.states = "bogus"
	partitionsFlags.counts = false
	partitionsFlags.format = "text"
	partitionsFlags.output = ""

	err := listPartitions(nil, []string{})
	if err == nil {
		t.Fatal("listPartitions() with unknown state should return an error")
	}
	var flagErr *cli.FlagError
	if !errors.As(err, &flagErr) {
		t.Errorf("error type = %T, want *cli.FlagError", err)
	}
}

func TestListPartitionsUnknownFormat(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfig(t, writeMemoryConfig(t, tmpDir))

	partitionsFlags.states = ""
	partitionsFlags.counts = false
	partitionsFlags.format = "yaml"
	partitionsFlags.output = ""

	err := listPartitions(nil, []string{})
	if err == nil {
		t.Fatal("listPartitions() with unknown format should return an error")
	}
	var flagErr *cli.FlagError
	if !errors.As(err, &flagErr) {
		t.Errorf("error type = %T, want *cli.FlagError", err)
	}
}
