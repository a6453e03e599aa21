package bigquery

import (
	"fmt"
	"strings"
)

// TableRef identifies a destination table. ProjectID may be empty, in which
// case the client's project is used.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// ParseDestination accepts "dataset.table" or "project.dataset.table".
func ParseDestination(dest string) (TableRef, error) {
	parts := strings.Split(strings.TrimSpace(dest), ".")
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("ParseDestination: malformed destination %q", dest)
		}
	}

	switch len(parts) {
	case 2:
		return TableRef{DatasetID: parts[0], TableID: parts[1]}, nil
	case 3:
		return TableRef{ProjectID: parts[0], DatasetID: parts[1], TableID: parts[2]}, nil
	default:
		return TableRef{}, fmt.Errorf("ParseDestination: %q must be dataset.table or project.dataset.table", dest)
	}
}

func (r TableRef) String() string {
	if r.ProjectID == "" {
		return r.DatasetID + "." + r.TableID
	}
	return r.ProjectID + "." + r.DatasetID + "." + r.TableID
}
