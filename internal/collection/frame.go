package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Canonical frame keys, in write order.
const (
	keyID                = "id"
	keyPosition          = "position"
	keyDirection         = "direction"
	keyImagePath         = "image_path"
	keyBaked             = "baked"
	keyOriginalImagePath = "original_image_path"
)

// aliases maps legacy keys onto canonical ones.
var aliases = map[string]string{
	"cone_id":        keyID,
	"dxf_position":   keyPosition,
	"rotation_baked": keyBaked,
}

// FrameID is a frame identifier. Numbers and strings are both accepted and
// written back in their original form.
type FrameID struct {
	raw json.RawMessage
}

// IntID returns a numeric identifier.
func IntID(n int) FrameID {
	return FrameID{raw: json.RawMessage(strconv.Itoa(n))}
}

// StringID returns a string identifier.
func StringID(s string) FrameID {
	b, _ := json.Marshal(s)
	return FrameID{raw: b}
}

func (id FrameID) String() string {
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// IsZero reports whether the id was never set.
func (id FrameID) IsZero() bool { return len(id.raw) == 0 }

func (id FrameID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *FrameID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64:
	default:
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	id.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Frame is one panorama and its capture orientation.
type Frame struct {
	ID                FrameID
	Position          Vec3
	Direction         Direction
	ImagePath         string
	Baked             bool
	OriginalImagePath string

	// Extra holds fields this package does not interpret.
	Extra map[string]json.RawMessage
}

func (f *Frame) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("frame is null")
	}

	// canonical keys win over legacy aliases
	for alias, key := range aliases {
		v, ok := fields[alias]
		if !ok {
			continue
		}
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = v
		delete(fields, alias)
	}

	*f = Frame{}
	take := func(key string, dst any) error {
		v, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	if _, ok := fields[keyID]; !ok {
		return fmt.Errorf("missing %q", keyID)
	}
	if err := take(keyID, &f.ID); err != nil {
		return err
	}
	if _, ok := fields[keyImagePath]; !ok {
		return fmt.Errorf("frame %s: missing %q", f.ID, keyImagePath)
	}
	if err := take(keyImagePath, &f.ImagePath); err != nil {
		return err
	}
	if err := take(keyPosition, &f.Position); err != nil {
		return err
	}
	if err := take(keyBaked, &f.Baked); err != nil {
		return err
	}
	if err := take(keyOriginalImagePath, &f.OriginalImagePath); err != nil {
		return err
	}

	if raw, ok := fields[keyDirection]; ok {
		delete(fields, keyDirection)
		d, err := decodeDirection(raw)
		if err != nil {
			return fmt.Errorf("frame %s: %w", f.ID, err)
		}
		f.Direction = d
	}

	if len(fields) > 0 {
		f.Extra = fields
	}
	return nil
}

// MarshalJSON writes canonical keys in a fixed order followed by the extra
// fields sorted by name.
func (f Frame) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	if err := write(keyID, f.ID); err != nil {
		return nil, err
	}
	if err := write(keyPosition, f.Position); err != nil {
		return nil, err
	}
	if f.Direction != nil {
		if err := write(keyDirection, f.Direction); err != nil {
			return nil, err
		}
	}
	if err := write(keyImagePath, f.ImagePath); err != nil {
		return nil, err
	}
	if err := write(keyBaked, f.Baked); err != nil {
		return nil, err
	}
	if f.OriginalImagePath != "" {
		if err := write(keyOriginalImagePath, f.OriginalImagePath); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, f.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarkBaked rewrites f as baked: identity direction, image repointed to
// processed and the previous path kept as the original.
func (f *Frame) MarkBaked(processed string) {
	if f.OriginalImagePath == "" {
		f.OriginalImagePath = f.ImagePath
	}
	f.ImagePath = processed
	f.Direction = IdentityOrientation()
	f.Baked = true
}
