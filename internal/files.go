package internal

import (
	"os"
	"path/filepath"
)

// FullPathname makes filename absolute against the current working
// directory if it is not already absolute.
func FullPathname(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, filename), err
}
