package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// remoteFilesystems lists filesystem types whose advisory locking is not
// trustworthy enough for SQLite.
var remoteFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// ValidateFilesystem rejects ledger paths on network filesystems, where
// SQLite's locking is unreliable. Platforms without a filesystem probe skip
// the check.
func ValidateFilesystem(path string) error {
	return validateWithProbe(path, detectFilesystemType)
}

func validateWithProbe(path string, probe func(string) (string, error)) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}

	inspectPath, err := nearestExistingPath(path)
	if err != nil {
		return fmt.Errorf("resolve database path %q: %w", path, err)
	}

	fsType, err := probe(inspectPath)
	if err != nil {
		// Best-effort: no probe on this platform, no verdict.
		return nil
	}

	if isRemoteFilesystem(fsType) {
		return fmt.Errorf(
			"database path %q is on network filesystem %q; SQLite requires a local filesystem for reliable locking. Point storage.path at local disk",
			path, fsType)
	}
	return nil
}

// nearestExistingPath walks up from path until it finds a component that
// exists. The database file usually does not exist before first start, but
// some ancestor directory always does.
func nearestExistingPath(path string) (string, error) {
	candidate, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	for {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing parent for %q", candidate)
		}
		candidate = parent
	}
}

func isRemoteFilesystem(fsType string) bool {
	_, found := remoteFilesystems[strings.TrimSpace(strings.ToLower(fsType))]
	return found
}
