package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fsIndexStatusChecker is the production IndexStatusChecker: it looks
// for the canonical index directories and their sidecar status files
// on disk. It never parses the index segment itself (that format is
// an external collaborator's concern) — "valid index segment" here
// means "the directory exists and is non-empty".
type fsIndexStatusChecker struct{}

// NewIndexStatusChecker returns the production IndexStatusChecker.
func NewIndexStatusChecker() IndexStatusChecker { return fsIndexStatusChecker{} }

type filenameIndexStatus struct {
	Status string `json:"status"`
}

type contentIndexStatus struct {
	LastUpdateTime string `json:"lastUpdateTime"`
}

func (fsIndexStatusChecker) FilenameIndexAvailability() IndexAvailability {
	dir := fmt.Sprintf("/run/user/%d/deepin-anything-server", os.Getuid())
	if !isNonEmptyDir(dir) {
		return IndexAvailability{Available: false}
	}

	var status filenameIndexStatus
	if err := readJSON(filepath.Join(dir, "status.json"), &status); err != nil {
		return IndexAvailability{Available: false}
	}
	switch status.Status {
	case "loading", "scanning", "monitoring", "closed":
		return IndexAvailability{Available: status.Status != "closed", Status: status.Status}
	default:
		return IndexAvailability{Available: false, Status: status.Status}
	}
}

func (fsIndexStatusChecker) ContentIndexAvailability() IndexAvailability {
	dir := filepath.Join(xdgConfigHome(), "deepin", "dde-file-manager", "index")
	if !isNonEmptyDir(dir) {
		return IndexAvailability{Available: false}
	}

	var status contentIndexStatus
	if err := readJSON(filepath.Join(dir, "index_status.json"), &status); err != nil {
		return IndexAvailability{Available: false}
	}
	return IndexAvailability{Available: status.LastUpdateTime != ""}
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

func isNonEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
