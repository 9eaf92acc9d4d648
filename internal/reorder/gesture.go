package reorder

import (
	"errors"

	"projectdash/internal/models"
)

var (
	ErrNoActiveDrag   = errors.New("reorder: no active drag")
	ErrDragInProgress = errors.New("reorder: drag already in progress")
)

// State is the phase of a drag gesture.
type State int

const (
	Idle State = iota
	Dragging
	Dropped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// DropKind says what a task was released over.
type DropKind int

const (
	DropNothing DropKind = iota
	DropColumn
	DropTask
)

// DropTarget describes where a dragged task was released. Status is set for
// column drops and TaskID for task drops.
type DropTarget struct {
	Kind   DropKind
	Status models.TaskStatus
	TaskID string
}

// OnNothing is a release outside every drop zone.
func OnNothing() DropTarget { return DropTarget{Kind: DropNothing} }

// OnColumn is a release over a board column.
func OnColumn(status models.TaskStatus) DropTarget {
	return DropTarget{Kind: DropColumn, Status: status}
}

// OnTask is a release over another task card.
func OnTask(id string) DropTarget { return DropTarget{Kind: DropTask, TaskID: id} }

// Gesture tracks one drag from pickup to release. It is not safe for
// concurrent use; one gesture belongs to one pointer.
type Gesture struct {
	state  State
	taskID string
	target DropTarget
}

// Start picks up a task.
func (g *Gesture) Start(taskID string) error {
	if g.state != Idle {
		return ErrDragInProgress
	}
	g.state = Dragging
	g.taskID = taskID
	g.target = DropTarget{}
	return nil
}

// Drop releases the dragged task over target.
func (g *Gesture) Drop(target DropTarget) error {
	if g.state != Dragging {
		return ErrNoActiveDrag
	}
	g.state = Dropped
	g.target = target
	return nil
}

// Finish returns the dropped task and its target and resets the gesture.
func (g *Gesture) Finish() (string, DropTarget, error) {
	if g.state != Dropped {
		return "", DropTarget{}, ErrNoActiveDrag
	}
	taskID, target := g.taskID, g.target
	g.Cancel()
	return taskID, target, nil
}

// Cancel abandons the gesture.
func (g *Gesture) Cancel() {
	*g = Gesture{}
}
