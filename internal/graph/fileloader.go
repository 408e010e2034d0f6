package graph

import (
	"fmt"
	"os"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// FileLoader resolves a workflow_location that is a local filesystem
// path. CSV/object-storage-backed locations are handled by an
// out-of-scope external collaborator; this is the reference
// implementation used by tests and single-node deployments.
type FileLoader struct{}

func (FileLoader) Load(location string) (*domain.Workflow, error) {
	raw, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read workflow document %s: %w", location, err)
	}

	return Load(raw)
}
