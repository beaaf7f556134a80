// Package codec centralizes record-table payload encoding.
//
// Snapshots are self-describing: the manifest records the codec name, and a
// snapshot is opened with the codec it was written with. Changing the default
// codec therefore never breaks previously dumped cubes.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for newly written snapshots.
//
// Existing snapshots are unaffected by changes to this value: the manifest
// stores the codec name and load selects the codec by name.
var Default Codec = GoJSON{}
