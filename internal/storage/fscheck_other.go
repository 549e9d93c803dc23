//go:build !darwin && !linux

package storage

// No probe on this platform; the empty type counts as local.
func detectFilesystemType(string) (string, error) {
	return "", nil
}
