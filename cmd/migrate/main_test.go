package main

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The repository scans question config columns into plain ints, so a NULL in
// any of them breaks every session load. Guard the schema and the seed
// against reintroducing nullable config values.

var questionConfigColumns = []string{
	"range_start",
	"range_end",
	"range_step",
	"max_length",
	"min_selections",
	"max_selections",
}

func questionsTableStatement(t *testing.T) string {
	t.Helper()
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS questions") {
			return stmt
		}
	}
	require.Fail(t, "questions table statement not found")
	return ""
}

func TestQuestionConfigColumnsNotNullable(t *testing.T) {
	stmt := questionsTableStatement(t)

	for _, col := range questionConfigColumns {
		pattern := regexp.MustCompile(fmt.Sprintf(`%s INTEGER NOT NULL DEFAULT 0`, col))
		assert.True(t, pattern.MatchString(stmt), "column %s must be NOT NULL DEFAULT 0", col)
	}
}

func TestSeedQuestionWritesConfigValues(t *testing.T) {
	assert.NotContains(t, seedQuestionStatement, "NULL")
	for _, col := range questionConfigColumns {
		assert.Contains(t, seedQuestionStatement, col, "seed must set %s explicitly", col)
	}
}
