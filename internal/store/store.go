// Package store implements the content store: one directory per artifact
// kind under a root, files named by id plus a fixed extension.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Kind is an artifact category with its own directory and extension
type Kind string

const (
	Audio  Kind = "audio"
	Images Kind = "images"
	Videos Kind = "videos"
)

// Ext returns the file extension used for the kind
func (k Kind) Ext() string {
	switch k {
	case Audio:
		return ".mp3"
	case Images:
		return ".png"
	case Videos:
		return ".mp4"
	}
	return ""
}

// Store resolves artifact paths. Directories are created on first use.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

// Dir returns the directory for kind, creating it if needed
func (s *Store) Dir(kind Kind) (string, error) {
	if kind.Ext() == "" {
		return "", types.InvalidArgf("unknown artifact kind %q", kind)
	}
	dir := filepath.Join(s.root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", kind, err)
	}
	return dir, nil
}

// Path returns the final location of artifact id
func (s *Store) Path(kind Kind, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	dir, err := s.Dir(kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+kind.Ext()), nil
}

// Exists reports whether artifact id is present and non-empty
func (s *Store) Exists(kind Kind, id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	fi, err := os.Stat(filepath.Join(s.root, string(kind), id+kind.Ext()))
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

// Put hands write a temporary path next to the final file, then renames it
// into place once write succeeds and produced a non-empty file. A failed
// write never touches an existing artifact with the same id.
func (s *Store) Put(kind Kind, id string, write func(tmpPath string) error) (string, error) {
	final, err := s.Path(kind, id)
	if err != nil {
		return "", err
	}
	// keep the extension last so encoders can infer the format
	tmp := strings.TrimSuffix(final, kind.Ext()) + ".partial" + kind.Ext()
	_ = os.Remove(tmp)

	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := NonEmpty(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit %s: %w", final, err)
	}
	return final, nil
}

// NonEmpty checks that path is a readable regular file with content
func NonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// ValidateID rejects ids that cannot be used as a plain file name
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return types.InvalidArgf("empty artifact id")
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return types.InvalidArgf("artifact id %q is not a plain file name", id)
	}
	return nil
}
