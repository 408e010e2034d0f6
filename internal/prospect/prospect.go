// Package prospect declares the prospect-list loading contract the
// orchestrator depends on. CSV parsing and object-storage I/O are
// out-of-scope external collaborators (spec §1); this package holds
// only the interface plus a local-filesystem reference implementation,
// mirroring internal/graph's Loader/FileLoader split for workflow
// documents.
package prospect

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Record is one row of an imported prospect list, the minimum the
// engine needs to build a Lead.
type Record struct {
	LinkedInURL      string
	PublicIdentifier string
}

// Loader resolves a campaign's prospect_list_id to its member records.
// The concrete storage medium (object storage, a CRM export) is an
// out-of-scope external collaborator; the rest of the engine depends
// only on this interface.
type Loader interface {
	Load(ctx context.Context, prospectListID string) ([]Record, error)
}

// FileLoader treats prospectListID as a local CSV path with a
// linkedin_url column (and an optional public_identifier column). It
// is the reference implementation used by tests and single-node
// deployments, not a production prospect-list backend.
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, prospectListID string) ([]Record, error) {
	f, err := os.Open(prospectListID)
	if err != nil {
		return nil, fmt.Errorf("open prospect list %s: %w", prospectListID, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read prospect list header: %w", err)
	}

	urlIdx, idIdx := -1, -1

	for i, col := range header {
		switch col {
		case "linkedin_url":
			urlIdx = i
		case "public_identifier":
			idIdx = i
		}
	}

	if urlIdx == -1 {
		return nil, fmt.Errorf("prospect list %s missing linkedin_url column", prospectListID)
	}

	var out []Record

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read prospect list row: %w", err)
		}

		rec := Record{LinkedInURL: row[urlIdx]}
		if idIdx != -1 && idIdx < len(row) {
			rec.PublicIdentifier = row[idIdx]
		}

		out = append(out, rec)
	}

	return out, nil
}
