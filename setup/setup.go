// Package setup places exported model files where the server expects them.
package setup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"screenapi/ml"
)

const DefaultPattern = "*.pkl"

// Classify picks the slot a model file belongs to from its name. "adult" is
// checked before "toddler".
func Classify(name string) (ml.Slot, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for _, slot := range ml.Slots {
		if strings.Contains(lower, string(slot)) {
			return slot, true
		}
	}
	return "", false
}

// Discover lists the regular files in fsys matching pattern, sorted by name.
func Discover(fsys fs.FS, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, match := range matches {
		info, err := fs.Stat(fsys, match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

// Outcome records what happened to one candidate file.
type Outcome struct {
	Source string
	Target string
	Slot   ml.Slot
	Err    error
}

func (o Outcome) Skipped() bool {
	return o.Slot == ""
}

// Install copies each file under srcDir into its slot's target path. Files
// that match no slot are skipped; copy errors are recorded per file.
func Install(srcDir string, files []string, cfg ml.StoreConfig) []Outcome {
	outcomes := make([]Outcome, 0, len(files))
	for _, name := range files {
		out := Outcome{Source: filepath.Join(srcDir, name)}
		slot, ok := Classify(name)
		if !ok {
			outcomes = append(outcomes, out)
			continue
		}
		out.Slot = slot
		out.Target = cfg.Path(slot)
		out.Err = CopyFile(out.Source, out.Target)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// CopyFile copies src to dst, creating dst's directory and keeping src's
// permissions and modification time.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// Exists reports, per slot, whether the target model file is present.
func Exists(cfg ml.StoreConfig) map[ml.Slot]bool {
	present := make(map[ml.Slot]bool, len(ml.Slots))
	for _, slot := range ml.Slots {
		info, err := os.Stat(cfg.Path(slot))
		present[slot] = err == nil && info.Mode().IsRegular()
	}
	return present
}
