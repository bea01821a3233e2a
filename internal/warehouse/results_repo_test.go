package warehouse

import (
	"strings"
	"testing"
	"time"

	"valdsync/internal/model"
)

func TestTableName(t *testing.T) {
	repo := NewResultsRepo(nil, "vald_")

	name, err := repo.tableName("cmj_results")
	if err != nil {
		t.Fatalf("tableName: %v", err)
	}
	if name != "vald_cmj_results" {
		t.Errorf("got %q", name)
	}

	for _, bad := range []string{"cmj results", "cmj;drop", "1cmj", "CMJ"} {
		if _, err := repo.tableName(bad); err == nil {
			t.Errorf("expected error for table %q", bad)
		}
	}
}

func TestExistingKeysQuery(t *testing.T) {
	ts := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	keys := []model.Key{
		{AthleteID: "A1", TestType: "CMJ", RecordedAt: ts},
		{AthleteID: "A2", TestType: "CMJ", RecordedAt: ts.Add(time.Hour)},
	}

	query, args := existingKeysQuery("vald_cmj_results", keys)

	if !strings.Contains(query, "FROM vald_cmj_results") {
		t.Errorf("query missing table: %s", query)
	}
	if !strings.Contains(query, "($1, $2, $3), ($4, $5, $6)") {
		t.Errorf("query missing tuple placeholders: %s", query)
	}
	if len(args) != 6 {
		t.Fatalf("args: got %d, want 6", len(args))
	}
	if args[0] != "A1" || args[3] != "A2" {
		t.Errorf("args order wrong: %v", args)
	}
}
