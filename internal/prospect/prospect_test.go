package prospect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "prospects.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestFileLoader_ParsesLinkedInURLAndPublicIdentifier(t *testing.T) {
	path := writeCSV(t, "linkedin_url,public_identifier\nhttps://linkedin.com/in/ada,ada\nhttps://linkedin.com/in/grace,grace\n")

	records, err := FileLoader{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://linkedin.com/in/ada", records[0].LinkedInURL)
	assert.Equal(t, "ada", records[0].PublicIdentifier)
}

func TestFileLoader_PublicIdentifierOptional(t *testing.T) {
	path := writeCSV(t, "linkedin_url\nhttps://linkedin.com/in/ada\n")

	records, err := FileLoader{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].PublicIdentifier)
}

func TestFileLoader_MissingURLColumnErrors(t *testing.T) {
	path := writeCSV(t, "public_identifier\nada\n")

	_, err := FileLoader{}.Load(context.Background(), path)
	assert.Error(t, err)
}

func TestFileLoader_MissingFileErrors(t *testing.T) {
	_, err := FileLoader{}.Load(context.Background(), filepath.Join(t.TempDir(), "does-not-exist.csv"))
	assert.Error(t, err)
}
