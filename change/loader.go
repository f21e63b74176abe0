/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/acronis/go-carpet"
)

// ClasspathPrefix marks a file reference that is resolved against bundled resources.
const ClasspathPrefix = "classpath:"

// Loader reads task content either from the OS filesystem or from bundled resources.
// A nil *Loader reads from the OS filesystem only.
type Loader struct {
	resources fs.FS
}

// NewLoader creates a new Loader. References with ClasspathPrefix are resolved against resources,
// which is usually an embed.FS. resources may be nil.
func NewLoader(resources fs.FS) *Loader {
	return &Loader{resources: resources}
}

// IsResourceRef reports whether filePath refers to a bundled resource. The prefix is case-insensitive.
func IsResourceRef(filePath string) bool {
	return len(filePath) >= len(ClasspathPrefix) && strings.EqualFold(filePath[:len(ClasspathPrefix)], ClasspathPrefix)
}

// ResourceRef makes a bundled resource reference for the given path inside the resource FS.
func ResourceRef(name string) string {
	return ClasspathPrefix + name
}

// Load returns the content of the referenced file.
func (l *Loader) Load(filePath string) (string, error) {
	if IsResourceRef(filePath) {
		name := path.Clean(strings.TrimPrefix(filePath[len(ClasspathPrefix):], "/"))
		if l == nil || l.resources == nil {
			return "", carpet.ParseErrorf("unable to find file %s: no resources configured", filePath)
		}
		data, err := fs.ReadFile(l.resources, name)
		if err != nil {
			return "", carpet.WrapParseError(err, "unable to find file %s", filePath)
		}
		return string(data), nil
	}
	if filePath == "" {
		return "", carpet.ParseErrorf("file path is empty")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", carpet.WrapParseError(err, "unable to find file %s", filePath)
	}
	return string(data), nil
}
