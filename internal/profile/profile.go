// Package profile assigns avatar images to new users.
package profile

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// Picker chooses a random avatar from <dir>/Male or <dir>/Female. The
// returned reference is relative to dir, e.g. "Female/3.png", which is what
// clients resolve against the static asset root.
type Picker struct {
	dir  string
	intn func(int) int
}

// NewPicker returns a Picker reading from dir.
func NewPicker(dir string) *Picker {
	return &Picker{dir: dir, intn: rand.IntN}
}

// Pick returns a profile reference for gender. Anything other than "female"
// uses the male set, matching what existing clients expect.
func (p *Picker) Pick(gender string) (string, error) {
	folder := "Male"
	if strings.EqualFold(gender, "female") {
		folder = "Female"
	}

	entries, err := os.ReadDir(filepath.Join(p.dir, folder))
	if err != nil {
		return "", fmt.Errorf("failed to list %s profiles: %w", folder, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s profiles in %s", folder, p.dir)
	}
	return folder + "/" + names[p.intn(len(names))], nil
}
