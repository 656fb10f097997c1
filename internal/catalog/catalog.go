// Package catalog holds the fixed, ordered list of trackable tasks.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateTaskID is returned when two tasks share an id.
	ErrDuplicateTaskID = errors.New("duplicate task id")
	// ErrInvalidTask is returned for tasks with an empty id or a non-positive weight.
	ErrInvalidTask = errors.New("invalid task")
)

// Task is one trackable daily task.
type Task struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Catalog is an immutable ordered set of tasks. The zero value is not usable.
type Catalog struct {
	tasks    []Task
	index    map[string]int
	maxScore int
}

// New validates tasks and builds a catalog. Ids are trimmed and NFC
// normalised so that the same id typed two ways collides.
func New(tasks []Task) (*Catalog, error) {
	c := &Catalog{
		tasks: make([]Task, 0, len(tasks)),
		index: make(map[string]int, len(tasks)),
	}
	for i, t := range tasks {
		t.ID = NormalizeID(t.ID)
		t.Label = strings.TrimSpace(t.Label)
		if t.ID == "" {
			return nil, fmt.Errorf("%w: task #%d has an empty id", ErrInvalidTask, i+1)
		}
		if t.Weight <= 0 {
			return nil, fmt.Errorf("%w: task %q has weight %d, want > 0", ErrInvalidTask, t.ID, t.Weight)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTaskID, t.ID)
		}
		if t.Label == "" {
			t.Label = t.ID
		}
		c.index[t.ID] = len(c.tasks)
		c.tasks = append(c.tasks, t)
		c.maxScore += t.Weight
	}
	if len(c.tasks) == 0 {
		return nil, fmt.Errorf("%w: catalog has no tasks", ErrInvalidTask)
	}
	return c, nil
}

// NormalizeID canonicalises a task id.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Default returns the built-in task list.
func Default() *Catalog {
	c, err := New([]Task{
		{ID: "dsa", Label: "DSA Practice", Weight: 2},
		{ID: "college", Label: "College & Gateway", Weight: 1},
		{ID: "dev", Label: "Development & GSoC", Weight: 2},
		{ID: "gate", Label: "GATE Core Study", Weight: 2},
		{ID: "revision", Label: "Revision & Aptitude", Weight: 1},
	})
	if err != nil {
		panic("catalog: built-in tasks are invalid: " + err.Error())
	}
	return c
}

type catalogFile struct {
	Tasks []Task `yaml:"tasks"`
}

// LoadFile reads a yaml catalog of the form `tasks: [{id, label, weight}]`.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	c, err := New(f.Tasks)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Tasks returns a copy of the tasks in catalog order.
func (c *Catalog) Tasks() []Task {
	out := make([]Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Len returns the number of tasks.
func (c *Catalog) Len() int { return len(c.tasks) }

// Lookup returns the task with the given id.
func (c *Catalog) Lookup(id string) (Task, bool) {
	i, ok := c.index[NormalizeID(id)]
	if !ok {
		return Task{}, false
	}
	return c.tasks[i], true
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[NormalizeID(id)]
	return ok
}

// MaxScore is the sum of all weights.
func (c *Catalog) MaxScore() int { return c.maxScore }

// Label returns the task label, falling back to the id for unknown tasks.
func (c *Catalog) Label(id string) string {
	if t, ok := c.Lookup(id); ok {
		return t.Label
	}
	return id
}
