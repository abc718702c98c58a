package modelcache

import (
	"encoding/json"
	"os"
	"time"
)

// manifest is the sidecar record written next to each verified artifact so
// later availability checks can skip re-hashing multi-hundred-megabyte files.
// A missing or mismatched manifest forces a full hash verification.
type manifest struct {
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	VerifiedAt time.Time `json:"verified_at"`
}

func manifestPath(artifactPath string) string { return artifactPath + ".manifest" }

func readManifest(artifactPath string) (manifest, bool) {
	data, err := os.ReadFile(manifestPath(artifactPath))
	if err != nil {
		return manifest{}, false
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, false
	}
	return m, m.SHA256 != ""
}

// writeManifest persists the record atomically: a torn write must never
// produce a manifest that validates a corrupt artifact.
func writeManifest(artifactPath string, m manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := manifestPath(artifactPath) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, manifestPath(artifactPath)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
