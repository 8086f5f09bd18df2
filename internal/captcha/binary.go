package captcha

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

var ErrToolNotFound = errors.New("captcha: no binary available")

// lookupBinary returns the first candidate that is a regular file, falling back
// to searching $PATH for the base name.
func lookupBinary(name string, candidates ...string) (string, error) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s %v", ErrToolNotFound, name, candidates)
}
