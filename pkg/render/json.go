package render

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/runningman84/truenas-status/pkg/models"
)

// JSONPresenter writes the snapshot as a single indented JSON document
type JSONPresenter struct{}

// Present encodes the snapshot with a UTC timestamp. Nil slices are
// written as empty arrays.
func (p *JSONPresenter) Present(w io.Writer, snap *models.Snapshot) error {
	out := *snap
	out.Timestamp = snap.Timestamp.UTC()
	if out.Pools == nil {
		out.Pools = []models.PoolRecord{}
	}
	if out.Datasets == nil {
		out.Datasets = []models.DatasetRecord{}
	}
	if out.Alerts == nil {
		out.Alerts = []models.AlertRecord{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}
