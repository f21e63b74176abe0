/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package changeset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
)

// UnnumberedTaskOrder is the order given to tasks whose file name has no leading number,
// so they run after the numbered ones.
const UnnumberedTaskOrder = 1000000

// fileNamePattern splits a task file name into an optional order number, optional separators and the name.
// "12 - Create table.sql", "1.add-index.sql" and "cleanup.sql" are all valid.
var fileNamePattern = regexp.MustCompile(`^(\d*)([ \-:.]*)(.*)$`)

// Resolver builds changes from a change set location.
type Resolver struct {
	src    source
	root   string
	loader *change.Loader
	logger log.FieldLogger
}

// Option is a functional option for Resolver.
type Option func(*Resolver)

// WithResources sets the FS used to load "classpath:" file references found in documents.
func WithResources(resources fs.FS) Option {
	return func(r *Resolver) {
		r.loader = change.NewLoader(resources)
	}
}

// WithLogger sets the logger. By default, nothing is logged.
func WithLogger(logger log.FieldLogger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver for a file or directory on the OS filesystem.
func NewResolver(root string, opts ...Option) *Resolver {
	r := &Resolver{src: osSource{}, root: root, loader: change.NewLoader(nil), logger: log.NewDisabledLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFSResolver creates a Resolver for a file or directory inside fsys.
// Tasks built from plain SQL files reference them with the "classpath:" prefix, so fsys also serves
// as the resource FS unless WithResources is passed.
func NewFSResolver(fsys fs.FS, root string, opts ...Option) *Resolver {
	if root == "" {
		root = "."
	}
	r := &Resolver{src: fsSource{fsys: fsys}, root: root, loader: change.NewLoader(fsys), logger: log.NewDisabledLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads the change set and returns its changes in discovery order.
// All errors are parse errors, no partial result is returned.
func (r *Resolver) Resolve(ctx context.Context) ([]*change.Change, error) {
	info, err := r.src.Stat(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, carpet.ParseErrorf("unable to find change set at %s", r.root)
		}
		return nil, carpet.WrapParseError(err, "stat %s", r.root)
	}

	var changes []*change.Change
	if info.IsDir() {
		changes, err = r.resolveRootDir(ctx)
	} else {
		changes, err = r.readDocument(r.root)
	}
	if err != nil {
		return nil, err
	}

	if err = checkDuplicateVersions(changes); err != nil {
		return nil, err
	}
	r.logger.Debug("change set resolved", log.String("path", r.root), log.Int("changes", len(changes)))
	return changes, nil
}

func (r *Resolver) resolveRootDir(ctx context.Context) ([]*change.Change, error) {
	if doc, ok, err := r.findConventionDocument(r.root); err != nil {
		return nil, err
	} else if ok {
		return r.readDocument(doc)
	}

	entries, err := r.src.ReadDir(r.root)
	if err != nil {
		return nil, carpet.WrapParseError(err, "read directory %s", r.root)
	}
	var changes []*change.Change
	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return nil, carpet.WrapParseError(err, "resolve %s", r.root)
		}
		if !entry.IsDir() || !change.IsValidVersion(entry.Name()) {
			continue
		}
		versionChanges, err := r.resolveVersionDir(r.src.Join(r.root, entry.Name()), entry.Name())
		if err != nil {
			return nil, err
		}
		changes = append(changes, versionChanges...)
	}
	return changes, nil
}

// resolveVersionDir uses the convention document of the directory if present,
// otherwise every file in the directory becomes a FileTask of a single change.
func (r *Resolver) resolveVersionDir(dir, version string) ([]*change.Change, error) {
	if doc, ok, err := r.findConventionDocument(dir); err != nil {
		return nil, err
	} else if ok {
		return r.readDocument(doc)
	}

	entries, err := r.src.ReadDir(dir)
	if err != nil {
		return nil, carpet.WrapParseError(err, "read directory %s", dir)
	}
	var tasks []change.Task
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		task, err := r.fileTask(dir, entry.Name())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	c, err := change.New(version, tasks...)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("change resolved from directory", log.String("version", version), log.Int("tasks", len(tasks)))
	return []*change.Change{c}, nil
}

func (r *Resolver) fileTask(dir, fileName string) (change.Task, error) {
	order, name, err := ParseTaskFileName(fileName)
	if err != nil {
		return nil, err
	}
	return change.NewFileTask(name, order, r.src.FileRef(r.src.Join(dir, fileName)), "", r.loader)
}

func (r *Resolver) findConventionDocument(dir string) (string, bool, error) {
	for _, name := range ConventionDocuments {
		docPath := r.src.Join(dir, name)
		info, err := r.src.Stat(docPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", false, carpet.WrapParseError(err, "stat %s", docPath)
		}
		if !info.IsDir() {
			return docPath, true, nil
		}
	}
	return "", false, nil
}

func (r *Resolver) readDocument(docPath string) ([]*change.Change, error) {
	format, ok := FormatFromPath(docPath)
	if !ok {
		return nil, carpet.ParseErrorf("unable to detect format of %s", docPath)
	}
	data, err := r.src.ReadFile(docPath)
	if err != nil {
		return nil, carpet.WrapParseError(err, "read %s", docPath)
	}
	changes, err := DecodeDocument(bytes.NewReader(data), format, r.loader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docPath, err)
	}
	r.logger.Debug("change set document read", log.String("path", docPath), log.Int("changes", len(changes)))
	return changes, nil
}

// ParseTaskFileName extracts the order and the task name from a task file name.
// The extension is not a part of the name: "1-create.sql" gives order 1 and name "create".
// Files without a leading number get UnnumberedTaskOrder.
func ParseTaskFileName(fileName string) (order int, name string, err error) {
	m := fileNamePattern.FindStringSubmatch(fileName)
	if m == nil {
		return 0, "", carpet.ParseErrorf("unable to parse task file name %q", fileName)
	}
	order = UnnumberedTaskOrder
	if m[1] != "" {
		if order, err = strconv.Atoi(m[1]); err != nil {
			return 0, "", carpet.WrapParseError(err, "parse order of task file %q", fileName)
		}
	}
	name = m[3]
	if ext := extension(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", carpet.ParseErrorf("task file %q has no name", fileName)
	}
	return order, name, nil
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func checkDuplicateVersions(changes []*change.Change) error {
	seen := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.Version()]; ok {
			return carpet.ParseErrorf("duplicate change version %s", c.Version())
		}
		seen[c.Version()] = struct{}{}
	}
	return nil
}
