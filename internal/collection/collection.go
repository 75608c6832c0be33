// Package collection reads and writes the ordered frame collection that
// drives a bake run.
//
// Three container shapes are accepted: an object with a "frames" array,
// the older object with a "cones" array, and a bare array. The shape and
// every unknown top-level or per-frame field survive a load/save cycle.
package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrInvalidCollection = errors.New("invalid frame collection")
	ErrMissingDirection  = errors.New("frame has no direction")
)

// Shape is the top-level layout of a collection file.
type Shape int

const (
	ShapeFrames Shape = iota // {"frames": [...]}
	ShapeCones               // {"cones": [...]}
	ShapeArray               // [...]
)

func (s Shape) key() string {
	if s == ShapeCones {
		return "cones"
	}
	return "frames"
}

// Collection is an ordered list of frames plus the document around them.
type Collection struct {
	Frames []Frame

	shape Shape
	meta  map[string]json.RawMessage
}

// New returns an empty collection in the canonical shape.
func New(frames []Frame) *Collection {
	return &Collection{Frames: frames, shape: ShapeFrames}
}

// Shape reports the container layout the collection was read from.
func (c *Collection) Shape() Shape { return c.shape }

// Decode parses a collection document.
func Decode(data []byte) (*Collection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCollection)
	}

	c := &Collection{}
	if data[0] == '[' {
		c.shape = ShapeArray
		if err := json.Unmarshal(data, &c.Frames); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCollection, err)
		}
		return c, nil
	}

	if err := json.Unmarshal(data, &c.meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCollection, err)
	}
	raw, ok := c.meta["frames"]
	if ok {
		c.shape = ShapeFrames
	} else if raw, ok = c.meta["cones"]; ok {
		c.shape = ShapeCones
	} else {
		return nil, fmt.Errorf("%w: no \"frames\" or \"cones\" array", ErrInvalidCollection)
	}
	delete(c.meta, c.shape.key())

	if err := json.Unmarshal(raw, &c.Frames); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCollection, err)
	}
	return c, nil
}

// Load reads and decodes the collection at path.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Encode renders the collection as 2-space indented JSON with a trailing
// newline. Equal collections always encode to equal bytes.
func (c *Collection) Encode() ([]byte, error) {
	frames := c.Frames
	if frames == nil {
		frames = []Frame{}
	}

	var doc any = frames
	if c.shape != ShapeArray {
		top := make(map[string]any, len(c.meta)+1)
		for k, v := range c.meta {
			top[k] = v
		}
		top[c.shape.key()] = frames
		doc = top
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Save encodes the collection and writes it to path.
func (c *Collection) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Pending returns the indexes of frames that are not yet baked, in order.
func (c *Collection) Pending() []int {
	var idx []int
	for i := range c.Frames {
		if !c.Frames[i].Baked {
			idx = append(idx, i)
		}
	}
	return idx
}

// Meta returns an unknown top-level field.
func (c *Collection) Meta(key string) (json.RawMessage, bool) {
	v, ok := c.meta[key]
	return v, ok
}

// StampExportInfo records in the top-level "export_info" object that the
// rotations were baked and which file they came from. Other export_info
// fields are kept. Bare arrays have nowhere to put it and are left alone.
func (c *Collection) StampExportInfo(originalFile string) error {
	if c.shape == ShapeArray {
		return nil
	}
	info := map[string]json.RawMessage{}
	if raw, ok := c.meta["export_info"]; ok {
		if err := json.Unmarshal(raw, &info); err != nil {
			return fmt.Errorf("export_info is not an object")
		}
		// null leaves the map nil
		if info == nil {
			info = map[string]json.RawMessage{}
		}
	}

	info["rotation_baked"] = json.RawMessage("true")
	name, _ := json.Marshal(originalFile)
	info["original_file"] = name

	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if c.meta == nil {
		c.meta = map[string]json.RawMessage{}
	}
	c.meta["export_info"] = raw
	return nil
}
