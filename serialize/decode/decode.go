package decode

import (
	"fmt"

	"github.com/elekiengine/elekicore/internal/buf"
	"github.com/elekiengine/elekicore/internal/tracelog"
	"github.com/elekiengine/elekicore/runtime/task"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// frame is one instance payload located by the scan: blob[start:end].
// A bad frame (truncated size or size overrunning the blob) has ok=false
// and parses to a nil node.
type frame struct {
	start, end int
	ok         bool
}

// Decode verifies the blob header and parses every instance frame into a
// node tree. The returned forest is indexed by instance id, root at 0.
//
// A header mismatch fails the whole call with a nil forest. A malformed
// instance only nils its own slot: the error is logged and the remaining
// instances parse normally. Frames are parsed concurrently on p (the
// shared pool when p is nil); each parse task touches only its own slice.
func Decode(blob wire.Binary, p *task.Pool) ([]*Node, error) {
	if err := wire.CheckHeader(blob); err != nil {
		return nil, err
	}
	if p == nil {
		p = task.Shared()
	}

	frames := scanFrames(blob)
	forest := make([]*Node, len(frames))

	tasks := make([]*task.Task[*Node], len(frames))
	for i, f := range frames {
		if !f.ok {
			tracelog.Errorf("%v %d: bad frame size", ErrMalformedInstance, i)
			continue
		}
		payload := blob[f.start:f.end]
		i := i
		tasks[i] = task.SpawnOn(p, task.Pooled, func() *Node {
			n, err := parsePayload(payload)
			if err != nil {
				tracelog.Errorf("%v %d: %v", ErrMalformedInstance, i, err)
				return nil
			}
			return n
		})
	}
	for i, t := range tasks {
		if t != nil {
			forest[i] = t.Join()
		}
	}
	return forest, nil
}

// scanFrames walks the body once, stepping size prefix by size prefix to
// find each instance's payload slice. A truncated or overrunning size
// still claims a slot, so the bad instance is visible as a nil in the
// forest, but it ends the scan: the next boundary is unknown.
func scanFrames(blob wire.Binary) []frame {
	var frames []frame
	pos := wire.HeaderSize
	for pos < len(blob) {
		end, err := buf.CheckSlice(len(blob), pos, wire.FrameSizeLen)
		if err != nil {
			frames = append(frames, frame{})
			return frames
		}
		size, _ := wire.ReadU32(blob[pos:])
		payloadEnd, err := buf.CheckSlice(len(blob), end, int(size))
		if err != nil {
			frames = append(frames, frame{})
			return frames
		}
		frames = append(frames, frame{start: end, end: payloadEnd, ok: true})
		pos = payloadEnd
	}
	return frames
}

// DumpForest renders the forest compactly for diagnostics, one line per
// instance.
func DumpForest(forest []*Node) string {
	out := ""
	for i, n := range forest {
		out += fmt.Sprintf("[%d] %s\n", i, dumpNode(n))
	}
	return out
}

func dumpNode(n *Node) string {
	if n == nil {
		return "<malformed>"
	}
	switch n.Kind {
	case wire.SignReference:
		if n.Outside {
			return fmt.Sprintf("ref(%q)", n.Name)
		}
		return fmt.Sprintf("ref(%d)", n.Index)
	case wire.SignArray:
		out := "["
		for i, item := range n.Items {
			if i > 0 {
				out += " "
			}
			out += dumpNode(item)
		}
		return out + "]"
	case wire.SignStruct:
		out := "{"
		first := true
		for k, v := range n.Fields {
			if !first {
				out += " "
			}
			first = false
			out += fmt.Sprintf("%s:%s", k, dumpNode(v))
		}
		return out + "}"
	case wire.SignString:
		return fmt.Sprintf("%q", n.Str)
	case wire.SignBinary:
		return fmt.Sprintf("blob(%d)", len(n.Blob))
	case wire.SignTrue:
		return "true"
	case wire.SignFalse:
		return "false"
	case wire.SignNil:
		return "nil"
	default:
		if wire.IsScalar(n.Kind) {
			return fmt.Sprintf("%s(%d)", n.Kind, n.Bits)
		}
		return n.Kind.String()
	}
}
