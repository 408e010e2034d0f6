package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrations_SchemaContents(t *testing.T) {
	migration, ok := migrations[1]
	assert.True(t, ok, "migration 1 should exist")
	assert.Contains(t, migration, "CREATE TABLE campaigns")
	assert.Contains(t, migration, "CREATE TABLE leads")
	assert.Contains(t, migration, "CREATE TABLE workflow_steps")
	assert.Contains(t, migration, "CREATE TABLE accounts")
	assert.Contains(t, migration, "idx_workflow_steps_due")
}

func TestOpen_InvalidURL(t *testing.T) {
	db, err := Open("not-a-valid-connection-string")
	if err == nil {
		// sql.Open only fails on malformed DSNs; ping against an
		// unreachable host surfaces the failure instead.
		assert.Nil(t, db)
	} else {
		assert.Error(t, err)
	}
}

func TestJoinSets(t *testing.T) {
	assert.Equal(t, "a = $1", joinSets([]string{"a = $1"}))
	assert.Equal(t, "a = $1, b = $2, updated_at = NOW()", joinSets([]string{"a = $1", "b = $2", "updated_at = NOW()"}))
}
