package editor

import (
	"time"

	"github.com/ivlev/scaffoldhero/internal/node"
)

// Cursor is the editing position: a time on the timeline and a track.
type Cursor struct {
	TimeMs   int `json:"timeMs"`
	TrackIdx int `json:"trackIdx"`
}

// Project is the persisted unit. Containers are the top-level timelines.
type Project struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Containers []*node.Container `json:"containers"`
}

// NewProject creates a project with one empty container. An empty id is
// replaced by the current local date and time.
func NewProject(id string) Project {
	if id == "" {
		id = time.Now().Format("2006-01-02 15:04:05")
	}
	return Project{ID: id, Title: id, Containers: []*node.Container{node.NewContainer()}}
}

// Document is everything the editor persists.
type Document struct {
	Project           Project `json:"project"`
	Cursor            Cursor  `json:"cursor"`
	OpenedContainerID int     `json:"openedContainerId"`
}

// NewDocument creates a document for a fresh project with its first
// container opened.
func NewDocument(projectID string) *Document {
	p := NewProject(projectID)
	return &Document{Project: p, OpenedContainerID: p.Containers[0].IDNum}
}

func (d *Document) container(id int) *node.Container {
	for _, c := range d.Project.Containers {
		if c.IDNum == id {
			return c
		}
	}
	return nil
}

func (d *Document) find(id int) node.Node {
	for _, c := range d.Project.Containers {
		if n := c.Find(id); n != nil {
			return n
		}
	}
	return nil
}

// nextID is one more than the largest id anywhere in the project.
func (d *Document) nextID() int {
	maxID := -1
	for _, c := range d.Project.Containers {
		if id := c.MaxID(); id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// fixUp restores the end-point invariant of every container tree.
func (d *Document) fixUp() {
	for _, c := range d.Project.Containers {
		c.FixEndPoints()
	}
}

func (d *Document) clone() *Document {
	cp := *d
	cp.Project.Containers = make([]*node.Container, len(d.Project.Containers))
	for i, c := range d.Project.Containers {
		cp.Project.Containers[i] = c.Clone()
	}
	return &cp
}
