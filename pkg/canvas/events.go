package canvas

import (
	"slices"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// Event types published besides the graph.EventKind names.
const (
	EventViewChanged   = "view.changed"
	EventGestureEnded  = "gesture.ended"
	EventNodeAction    = "node.action"
	EventLayoutApplied = "layout.applied"
	EventCommitQueued  = "commit.queued"
	EventCommitFailed  = "commit.failed"
)

// CommitEvent is the payload of commit.* events.
type CommitEvent struct {
	Op       string       `json:"op"`
	NodeID   graph.NodeID `json:"nodeId"`
	Fields   []string     `json:"fields,omitempty"`
	Attempts int          `json:"attempts,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ActionEvent is the payload of node.action events.
type ActionEvent struct {
	NodeID graph.NodeID `json:"nodeId"`
	Action string       `json:"action"`
}

// LayoutEvent is the payload of layout.applied events.
type LayoutEvent struct {
	Algorithm string `json:"algorithm"`
	Moved     int    `json:"moved"`
}

func (c *Canvas) publish(topic, typ string, data any) {
	if c.metrics != nil {
		c.metrics.RecordEvent(typ)
	}
	if c.bus == nil {
		return
	}
	c.bus.Publish(pubsub.Message{Topic: topic, Type: typ, Canvas: c.id, Data: data})
}

func (c *Canvas) graphChanged(e graph.Event) {
	c.publish(pubsub.GraphTopic(c.id), e.Kind.String(), e)
	if c.metrics != nil {
		switch e.Kind {
		case graph.NodeAdded, graph.NodeRemoved, graph.StoreReplaced:
			c.metrics.SetCanvasNodes(c.id, c.store.Len())
		}
	}
}

func (c *Canvas) viewChanged(v viewport.View) {
	c.publish(pubsub.ViewTopic(c.id), EventViewChanged, v)
}

// commitGesture receives the delta of a finished gesture. It runs inside
// Machine.End and must not take the canvas mutex.
func (c *Canvas) commitGesture(cm interaction.Commit) {
	c.queueUpdate(cm.Node, cm.Fields...)
}

func (c *Canvas) queueCreate(n *graph.Node) {
	err := c.adapter.Create(n)
	c.queued(persistence.OpCreate, n.ID, nil, err)
}

func (c *Canvas) queueUpdate(n *graph.Node, fields ...string) {
	if n == nil || len(fields) == 0 {
		return
	}
	err := c.adapter.Update(n.ID, persistence.NodeFields(n, fields...))
	c.queued(persistence.OpUpdate, n.ID, fields, err)
}

func (c *Canvas) queueDelete(id graph.NodeID) {
	err := c.adapter.Delete(id)
	c.queued(persistence.OpDelete, id, nil, err)
}

// queued reports an enqueue. Local state is already mutated, so an
// enqueue error is logged and published rather than returned.
func (c *Canvas) queued(op persistence.Op, id graph.NodeID, fields []string, err error) {
	ev := CommitEvent{Op: op.String(), NodeID: id, Fields: slices.Clone(fields)}
	if err != nil {
		ev.Error = err.Error()
		c.logger.Error("commit not queued",
			logging.Operation(op.String()), logging.NodeID(string(id)), logging.Error(err))
		c.publish(pubsub.CommitTopic(c.id), EventCommitFailed, ev)
		return
	}
	c.publish(pubsub.CommitTopic(c.id), EventCommitQueued, ev)
}

// commitFailed runs on the persistence worker after retries are exhausted.
// Optimistic local state is kept.
func (c *Canvas) commitFailed(f persistence.Failure) {
	c.logger.Error("commit failed",
		logging.Operation(f.Write.Op.String()),
		logging.NodeID(string(f.Write.NodeID)),
		logging.Attempt(f.Write.Attempts),
		logging.Error(f.Err))
	c.publish(pubsub.CommitTopic(c.id), EventCommitFailed, CommitEvent{
		Op:       f.Write.Op.String(),
		NodeID:   f.Write.NodeID,
		Fields:   fieldNames(f.Write.Fields),
		Attempts: f.Write.Attempts,
		Error:    f.Err.Error(),
	})
}

func fieldNames(f persistence.Fields) []string {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
