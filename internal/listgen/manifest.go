package listgen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Manifest is the JSON run manifest written alongside a run's CSVs
// (spec.md §4.8: "a JSON run manifest recording base_run_id, run_id,
// counts, and checksums").
type Manifest struct {
	ManifestID  string            `json:"manifest_id"`
	RunID       int64             `json:"run_id"`
	BaseRunID   *int64            `json:"base_run_id"`
	GeneratedAt string            `json:"generated_at"`
	Operators   []string          `json:"operators"`
	Counts      map[string]int    `json:"counts"`
	Checksums   map[string]string `json:"checksums"`
}

// NewManifest allocates a manifest with a fresh random id
// (google/uuid v4, since the manifest's identity has no natural
// deterministic key — unlike run_id, which is DB-issued).
func NewManifest(runID int64, baseRunID *int64, generatedAt string, operators []string) *Manifest {
	return &Manifest{
		ManifestID:  uuid.NewString(),
		RunID:       runID,
		BaseRunID:   baseRunID,
		GeneratedAt: generatedAt,
		Operators:   operators,
		Counts:      map[string]int{},
		Checksums:   map[string]string{},
	}
}

// Checksum computes the sha256 checksum of a written CSV's bytes and
// records it in the manifest under name (e.g. "cardinal/blacklist.csv").
func (m *Manifest) Checksum(name string, data []byte) {
	sum := sha256.Sum256(data)
	m.Checksums[name] = hex.EncodeToString(sum[:])
}

// Count records a row count under name (e.g. "cardinal/blacklist").
func (m *Manifest) Count(name string, n int) {
	m.Counts[name] = n
}

// Write serializes the manifest as indented JSON.
func (m *Manifest) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return errs.NewInternalError("listgen", "write run manifest", err)
	}
	return nil
}
