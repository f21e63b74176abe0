/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package changeset

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/acronis/go-carpet/change"
)

// source abstracts the filesystem the resolver walks.
type source interface {
	Stat(name string) (fs.FileInfo, error)
	// ReadDir returns entries sorted by file name.
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	Join(elem ...string) string
	Base(name string) string
	// FileRef returns the reference a FileTask uses to load the file.
	FileRef(name string) string
}

type osSource struct{}

func (osSource) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (osSource) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (osSource) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (osSource) Join(elem ...string) string                 { return filepath.Join(elem...) }
func (osSource) Base(name string) string                    { return filepath.Base(name) }
func (osSource) FileRef(name string) string                 { return name }

type fsSource struct {
	fsys fs.FS
}

func (s fsSource) Stat(name string) (fs.FileInfo, error)      { return fs.Stat(s.fsys, name) }
func (s fsSource) ReadDir(name string) ([]fs.DirEntry, error) { return fs.ReadDir(s.fsys, name) }
func (s fsSource) ReadFile(name string) ([]byte, error)       { return fs.ReadFile(s.fsys, name) }
func (s fsSource) Join(elem ...string) string                 { return path.Join(elem...) }
func (s fsSource) Base(name string) string                    { return path.Base(name) }
func (s fsSource) FileRef(name string) string                 { return change.ResourceRef(name) }
