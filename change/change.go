/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/acronis/go-carpet"
)

// VersionPattern is the pattern every change version must match.
var VersionPattern = regexp.MustCompile(`^\d+(\.\d+)+$`)

// Change is a versioned group of tasks. Changes are identified by their version.
type Change struct {
	version string
	tasks   []Task
}

// New creates a new Change. It returns a parse error if the version doesn't match VersionPattern
// or if two tasks share the same name.
func New(version string, tasks ...Task) (*Change, error) {
	if !IsValidVersion(version) {
		return nil, carpet.ParseErrorf("version %q does not match the pattern %s", version, VersionPattern)
	}
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t == nil {
			return nil, carpet.ParseErrorf("change %s contains a nil task", version)
		}
		if _, ok := seen[t.Name()]; ok {
			return nil, carpet.ParseErrorf("change %s contains duplicate task %q", version, t.Name())
		}
		seen[t.Name()] = struct{}{}
	}
	return &Change{version: version, tasks: append([]Task(nil), tasks...)}, nil
}

// IsValidVersion reports whether version can be used as a change version.
func IsValidVersion(version string) bool {
	return VersionPattern.MatchString(version)
}

// Version returns the version of the change.
func (c *Change) Version() string {
	return c.version
}

// Tasks returns the tasks of the change in declaration order.
func (c *Change) Tasks() []Task {
	return append([]Task(nil), c.tasks...)
}

// SortedTasks returns the tasks of the change in execution order.
func (c *Change) SortedTasks() []Task {
	tasks := c.Tasks()
	SortTasks(tasks)
	return tasks
}

// Equal reports whether both changes have the same version.
func (c *Change) Equal(other *Change) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.version == other.version
}

func (c *Change) String() string {
	names := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		names = append(names, t.Name())
	}
	return fmt.Sprintf("Change(version=%s, tasks=[%s])", c.version, strings.Join(names, ", "))
}
