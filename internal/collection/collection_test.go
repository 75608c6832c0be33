package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/panobake/pkg/orient"
)

var idComparer = cmp.Comparer(func(a, b FrameID) bool { return string(a.raw) == string(b.raw) })

const canonicalDoc = `{
  "export_info": {"source": "colmap", "count": 2},
  "frames": [
    {
      "id": 1,
      "position": {"x": 1.5, "y": -2, "z": 0.25},
      "direction": {"forward": {"x": 0, "y": 1, "z": 0}, "up": {"x": 0, "y": 0, "z": 1}},
      "image_path": "panoramas/one.jpg",
      "baked": false,
      "label": "entrance"
    },
    {
      "id": "b-2",
      "position": {"x": 0, "y": 0, "z": 0},
      "direction": {"forward": {"x": 1, "y": 0, "z": 0}, "up": {"x": 0, "y": 0, "z": 1}},
      "image_path": "panoramas/processed/two.jpg",
      "baked": true,
      "original_image_path": "panoramas/two.jpg"
    }
  ]
}`

func TestDecodeCanonical(t *testing.T) {
	c, err := Decode([]byte(canonicalDoc))
	require.NoError(t, err)
	assert.Equal(t, ShapeFrames, c.Shape())

	want := []Frame{
		{
			ID:        IntID(1),
			Position:  Vec3{X: 1.5, Y: -2, Z: 0.25},
			Direction: FullOrientation{Forward: Vec3{Y: 1}, Up: Vec3{Z: 1}},
			ImagePath: "panoramas/one.jpg",
			Extra:     map[string]json.RawMessage{"label": json.RawMessage(`"entrance"`)},
		},
		{
			ID:                StringID("b-2"),
			Direction:         FullOrientation{Forward: Vec3{X: 1}, Up: Vec3{Z: 1}},
			ImagePath:         "panoramas/processed/two.jpg",
			Baked:             true,
			OriginalImagePath: "panoramas/two.jpg",
		},
	}
	if diff := cmp.Diff(want, c.Frames, idComparer); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{0}, c.Pending())
	assert.Equal(t, "b-2", c.Frames[1].ID.String())
	assert.Equal(t, "1", c.Frames[0].ID.String())

	info, ok := c.Meta("export_info")
	require.True(t, ok)
	assert.JSONEq(t, `{"source": "colmap", "count": 2}`, string(info))
}

func TestDecodeLegacy(t *testing.T) {
	doc := `{
  "cones": [
    {
      "cone_id": 7,
      "dxf_position": {"x": 10, "y": 20, "z": 1.6},
      "direction": {"x": 0.6, "y": 0.8, "z": 0},
      "image_path": "p/7.jpg",
      "rotation_baked": false
    }
  ]
}`
	c, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, c.Frames, 1)
	assert.Equal(t, ShapeCones, c.Shape())

	f := c.Frames[0]
	assert.Equal(t, "7", f.ID.String())
	assert.Equal(t, Vec3{X: 10, Y: 20, Z: 1.6}, f.Position)
	assert.Nil(t, f.Extra, "aliases must not leak into extra fields")

	legacy, ok := f.Direction.(LegacyDirection)
	require.True(t, ok, "direction is %T", f.Direction)
	forward, up := legacy.Orientation()
	assert.Equal(t, r3.Vec{X: 0.6, Y: 0.8}, forward)
	assert.Equal(t, orient.WorldUp, up)

	// written back under the same container key with canonical frame keys
	out, err := c.Encode()
	require.NoError(t, err)
	var top map[string][]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &top))
	require.Contains(t, top, "cones")
	frame := top["cones"][0]
	for _, k := range []string{"id", "position", "direction", "image_path", "baked"} {
		assert.Contains(t, frame, k)
	}
	for _, k := range []string{"cone_id", "dxf_position", "rotation_baked"} {
		assert.NotContains(t, frame, k)
	}
	assert.JSONEq(t, `{"x": 0.6, "y": 0.8, "z": 0}`, string(frame["direction"]))
}

func TestCanonicalKeyWinsOverAlias(t *testing.T) {
	doc := `[{"id": 1, "cone_id": 99, "image_path": "a.jpg"}]`
	c, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, ShapeArray, c.Shape())
	assert.Equal(t, "1", c.Frames[0].ID.String())
	assert.JSONEq(t, "99", string(c.Frames[0].Extra["cone_id"]))
}

func TestEncodeIsCanonical(t *testing.T) {
	c := New([]Frame{{
		ID:                IntID(1),
		Position:          Vec3{X: 1, Y: 2, Z: 3},
		Direction:         IdentityOrientation(),
		ImagePath:         "pano/a.jpg",
		Baked:             true,
		OriginalImagePath: "a.jpg",
	}})

	out, err := c.Encode()
	require.NoError(t, err)

	want := `{
  "frames": [
    {
      "id": 1,
      "position": {
        "x": 1,
        "y": 2,
        "z": 3
      },
      "direction": {
        "forward": {
          "x": 0,
          "y": -1,
          "z": 0
        },
        "up": {
          "x": 0,
          "y": 0,
          "z": 1
        }
      },
      "image_path": "pano/a.jpg",
      "baked": true,
      "original_image_path": "a.jpg"
    }
  ]
}
`
	assert.Equal(t, want, string(out))
}

func TestEncodeIsStable(t *testing.T) {
	c, err := Decode([]byte(canonicalDoc))
	require.NoError(t, err)
	first, err := c.Encode()
	require.NoError(t, err)

	again, err := Decode(first)
	require.NoError(t, err)
	second, err := again.Encode()
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), `"label": "entrance"`)
	assert.Contains(t, string(first), `"source": "colmap"`)
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not json", "{frames: ["},
		{"no frame array", `{"items": []}`},
		{"missing id", `{"frames": [{"image_path": "a.jpg"}]}`},
		{"missing image", `{"frames": [{"id": 1}]}`},
		{"bool id", `{"frames": [{"id": true, "image_path": "a.jpg"}]}`},
		{"bad direction", `{"frames": [{"id": 1, "image_path": "a.jpg", "direction": {"x": 1}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidCollection)
		})
	}
}

func TestMissingDirection(t *testing.T) {
	c, err := Decode([]byte(`[{"id": 1, "image_path": "a.jpg", "direction": null}]`))
	require.NoError(t, err)
	assert.Nil(t, c.Frames[0].Direction)

	_, err = Transform(c.Frames[0].Direction)
	assert.ErrorIs(t, err, ErrMissingDirection)
}

func TestMarkBaked(t *testing.T) {
	f := Frame{
		ID:        IntID(3),
		Direction: FullOrientation{Forward: Vec3{X: 1}, Up: Vec3{Z: 1}},
		ImagePath: "pano/c.jpg",
	}
	f.MarkBaked("pano/processed/c.jpg")

	assert.True(t, f.Baked)
	assert.Equal(t, "pano/processed/c.jpg", f.ImagePath)
	assert.Equal(t, "pano/c.jpg", f.OriginalImagePath)

	tr, err := Transform(f.Direction)
	require.NoError(t, err)
	assert.True(t, tr.IsIdentity(1e-12))
}

func TestStampExportInfo(t *testing.T) {
	c, err := Decode([]byte(canonicalDoc))
	require.NoError(t, err)
	require.NoError(t, c.StampExportInfo("cone_data.json"))

	info, ok := c.Meta("export_info")
	require.True(t, ok)
	assert.JSONEq(t, `{"source": "colmap", "count": 2, "rotation_baked": true, "original_file": "cone_data.json"}`, string(info))

	arr := &Collection{shape: ShapeArray}
	require.NoError(t, arr.StampExportInfo("x.json"))
	_, ok = arr.Meta("export_info")
	assert.False(t, ok)
}

func TestStampExportInfoNull(t *testing.T) {
	c, err := Decode([]byte(`{"export_info": null, "frames": []}`))
	require.NoError(t, err)
	require.NoError(t, c.StampExportInfo("cone_data.json"))

	info, ok := c.Meta("export_info")
	require.True(t, ok)
	assert.JSONEq(t, `{"rotation_baked": true, "original_file": "cone_data.json"}`, string(info))

	bad, err := Decode([]byte(`{"export_info": [1, 2], "frames": []}`))
	require.NoError(t, err)
	assert.Error(t, bad.StampExportInfo("cone_data.json"))
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cone_data.json")
	require.NoError(t, os.WriteFile(in, []byte(canonicalDoc), 0644))

	c, err := Load(in)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, c.Save(out))

	back, err := Load(out)
	require.NoError(t, err)
	if diff := cmp.Diff(c.Frames, back.Frames, idComparer); diff != "" {
		t.Errorf("save/load changed frames:\n%s", diff)
	}

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cone_data.json")
	original := []byte(canonicalDoc + "\n\n")
	require.NoError(t, os.WriteFile(in, original, 0644))

	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	path, err := Backup(in, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cone_data.bak.20240309-140507.json"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, got, "backup must be a byte-for-byte copy")

	// same second: never overwrite
	second, err := Backup(in, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cone_data.bak.20240309-140507-1.json"), second)
}
