/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/acronis/go-carpet"
)

// DefaultDelimiter is used to split task content into statements when no delimiter is set.
const DefaultDelimiter = ";"

// TaskType is the discriminator of task variants in change set documents.
type TaskType string

// Task types.
const (
	TaskTypeScript TaskType = "ScriptTask"
	TaskTypeFile   TaskType = "FileTask"
)

// StatementExecutor executes a single SQL statement.
type StatementExecutor interface {
	ExecuteStatement(ctx context.Context, statement string) error
}

// Task is a unit of work inside a Change.
type Task interface {
	// Name is unique within the change and is stored in the tracking table.
	Name() string
	// Order defines the execution order within the change, ascending.
	Order() int
	Delimiter() string
	// Query is the full SQL content of the task.
	Query() string
	Type() TaskType
	// Statements returns Query split by Delimiter, trimmed, without empty fragments.
	Statements() []string
	// Perform executes the statements one by one and stops at the first failure.
	Perform(ctx context.Context, exec StatementExecutor) error
}

// SortTasks sorts tasks in place by Order. Tasks with equal order keep their relative position.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Order() < tasks[j].Order()
	})
}

// SplitStatements splits query by delimiter and drops fragments that are empty after trimming.
// Empty delimiter means DefaultDelimiter.
func SplitStatements(query, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	parts := strings.Split(query, delimiter)
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

type taskContent struct {
	name       string
	order      int
	delimiter  string
	query      string
	statements []string
}

func newTaskContent(name string, order int, query, delimiter string) (taskContent, error) {
	if strings.TrimSpace(name) == "" {
		return taskContent{}, carpet.ParseErrorf("task name is empty")
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	statements := SplitStatements(query, delimiter)
	if len(statements) == 0 {
		return taskContent{}, carpet.ParseErrorf("task %s has no statements", name)
	}
	return taskContent{name: name, order: order, delimiter: delimiter, query: query, statements: statements}, nil
}

func (tc *taskContent) Name() string {
	return tc.name
}

func (tc *taskContent) Order() int {
	return tc.order
}

func (tc *taskContent) Delimiter() string {
	return tc.delimiter
}

func (tc *taskContent) Query() string {
	return tc.query
}

func (tc *taskContent) Statements() []string {
	return append([]string(nil), tc.statements...)
}

func (tc *taskContent) Perform(ctx context.Context, exec StatementExecutor) error {
	for i, stmt := range tc.statements {
		if err := exec.ExecuteStatement(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d of task %s: %w", i+1, tc.name, err)
		}
	}
	return nil
}

// ScriptTask is a task with inline SQL.
type ScriptTask struct {
	taskContent
}

// NewScriptTask creates a new ScriptTask. Empty delimiter means DefaultDelimiter.
func NewScriptTask(name string, order int, script, delimiter string) (*ScriptTask, error) {
	tc, err := newTaskContent(name, order, script, delimiter)
	if err != nil {
		return nil, err
	}
	return &ScriptTask{taskContent: tc}, nil
}

// Type returns TaskTypeScript.
func (t *ScriptTask) Type() TaskType {
	return TaskTypeScript
}

// Script returns the inline SQL of the task.
func (t *ScriptTask) Script() string {
	return t.query
}

func (t *ScriptTask) String() string {
	return fmt.Sprintf("ScriptTask(name=%s, order=%d)", t.name, t.order)
}

// FileTask is a task whose SQL is read from a file.
type FileTask struct {
	taskContent
	filePath string
}

// NewFileTask creates a new FileTask and reads its content with loader.
// It returns a parse error if the file can't be found or is empty.
func NewFileTask(name string, order int, filePath, delimiter string, loader *Loader) (*FileTask, error) {
	content, err := loader.Load(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, carpet.ParseErrorf("file %s is empty", filePath)
	}
	tc, err := newTaskContent(name, order, content, delimiter)
	if err != nil {
		return nil, err
	}
	return &FileTask{taskContent: tc, filePath: filePath}, nil
}

// Type returns TaskTypeFile.
func (t *FileTask) Type() TaskType {
	return TaskTypeFile
}

// FilePath returns the file reference the content was loaded from.
func (t *FileTask) FilePath() string {
	return t.filePath
}

func (t *FileTask) String() string {
	return fmt.Sprintf("FileTask(name=%s, order=%d, path=%s)", t.name, t.order, t.filePath)
}
