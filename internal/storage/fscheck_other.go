//go:build !darwin && !linux

package storage

import "errors"

func detectFilesystemType(path string) (string, error) {
	return "", errors.New("no filesystem probe on this platform")
}
