/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package changeset

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
)

// DocumentFormat is a serialization format of change set documents.
type DocumentFormat string

// Document formats.
const (
	FormatJSON DocumentFormat = "json"
	FormatXML  DocumentFormat = "xml"
	FormatYAML DocumentFormat = "yaml"
)

// ConventionDocuments are the document names looked up inside change set directories, in priority order.
var ConventionDocuments = []string{"ChangeSet.json", "ChangeSet.xml", "ChangeSet.yaml", "ChangeSet.yml"}

// FormatFromPath detects the document format by the file extension.
func FormatFromPath(filePath string) (DocumentFormat, bool) {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".json":
		return FormatJSON, true
	case ".xml":
		return FormatXML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

type documentTask struct {
	Type      change.TaskType `json:"type" yaml:"type" xml:"type,omitempty"`
	TypeAttr  change.TaskType `json:"-" yaml:"-" xml:"type,attr,omitempty"`
	TaskName  string          `json:"taskName" yaml:"taskName" xml:"taskName"`
	TaskOrder int             `json:"taskOrder" yaml:"taskOrder" xml:"taskOrder"`
	Script    string          `json:"script,omitempty" yaml:"script,omitempty" xml:"script,omitempty"`
	FilePath  string          `json:"filePath,omitempty" yaml:"filePath,omitempty" xml:"filePath,omitempty"`
	Delimiter string          `json:"delimiter,omitempty" yaml:"delimiter,omitempty" xml:"delimiter,omitempty"`
}

type documentChange struct {
	Version string         `json:"version" yaml:"version" xml:"version"`
	Tasks   []documentTask `json:"tasks" yaml:"tasks" xml:"tasks>task"`
}

type xmlChangeList struct {
	XMLName xml.Name         `xml:"changeList"`
	Changes []documentChange `xml:"change"`
}

// DecodeDocument decodes a change set document and builds its changes.
// File references inside the document are loaded with loader.
func DecodeDocument(r io.Reader, format DocumentFormat, loader *change.Loader) ([]*change.Change, error) {
	docChanges, err := decodeDocumentChanges(r, format)
	if err != nil {
		return nil, err
	}
	changes := make([]*change.Change, 0, len(docChanges))
	for _, dc := range docChanges {
		c, err := dc.build(loader)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func decodeDocumentChanges(r io.Reader, format DocumentFormat) ([]documentChange, error) {
	var docChanges []documentChange
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&docChanges); err != nil {
			return nil, carpet.WrapParseError(err, "decode JSON document")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&docChanges); err != nil && !errors.Is(err, io.EOF) {
			return nil, carpet.WrapParseError(err, "decode YAML document")
		}
	case FormatXML:
		var list xmlChangeList
		if err := xml.NewDecoder(r).Decode(&list); err != nil {
			return nil, carpet.WrapParseError(err, "decode XML document")
		}
		docChanges = list.Changes
	default:
		return nil, carpet.ParseErrorf("unsupported document format %q", format)
	}
	return docChanges, nil
}

func (dc documentChange) build(loader *change.Loader) (*change.Change, error) {
	tasks := make([]change.Task, 0, len(dc.Tasks))
	for _, dt := range dc.Tasks {
		task, err := dt.build(loader)
		if err != nil {
			return nil, fmt.Errorf("change %s: %w", dc.Version, err)
		}
		tasks = append(tasks, task)
	}
	return change.New(dc.Version, tasks...)
}

func (dt documentTask) build(loader *change.Loader) (change.Task, error) {
	taskType := dt.Type
	if taskType == "" {
		taskType = dt.TypeAttr
	}
	switch taskType {
	case change.TaskTypeScript:
		return change.NewScriptTask(dt.TaskName, dt.TaskOrder, dt.Script, dt.Delimiter)
	case change.TaskTypeFile:
		return change.NewFileTask(dt.TaskName, dt.TaskOrder, dt.FilePath, dt.Delimiter, loader)
	default:
		return nil, carpet.ParseErrorf("task %q has unknown type %q", dt.TaskName, taskType)
	}
}

// EncodeDocument writes changes as a change set document. ScriptTask content is written inline,
// FileTask keeps its file reference.
func EncodeDocument(w io.Writer, format DocumentFormat, changes []*change.Change) error {
	docChanges := make([]documentChange, 0, len(changes))
	for _, c := range changes {
		dc := documentChange{Version: c.Version()}
		for _, t := range c.Tasks() {
			dt := documentTask{Type: t.Type(), TaskName: t.Name(), TaskOrder: t.Order()}
			if t.Delimiter() != change.DefaultDelimiter {
				dt.Delimiter = t.Delimiter()
			}
			switch task := t.(type) {
			case *change.FileTask:
				dt.FilePath = task.FilePath()
			default:
				dt.Script = t.Query()
			}
			dc.Tasks = append(dc.Tasks, dt)
		}
		docChanges = append(docChanges, dc)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docChanges)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docChanges); err != nil {
			return err
		}
		return enc.Close()
	case FormatXML:
		for i := range docChanges {
			for j := range docChanges[i].Tasks {
				dt := &docChanges[i].Tasks[j]
				dt.TypeAttr, dt.Type = dt.Type, ""
			}
		}
		var buf bytes.Buffer
		enc := xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		if err := enc.Encode(xmlChangeList{Changes: docChanges}); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	default:
		return fmt.Errorf("unsupported document format %q", format)
	}
}
