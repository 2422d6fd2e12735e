package resource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
)

// Kind describes how patches address one entity's document.
//
// Root, when set, is the public name of the document itself: "student_data"
// replaces the whole document and "student_data.x" addresses x inside it.
// Keys without the prefix address the document directly. Forbidden lists
// identity fields that a patch may never touch, at any depth below them.
type Kind struct {
	Name      string
	Root      string
	Forbidden []string
}

// Apply validates patch and returns a patched copy of doc. Nothing is
// applied unless every key is acceptable.
func (k Kind) Apply(doc Document, patch map[string]any) (Document, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: no values to update", common.ErrValidation)
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	// parents sort before their children so "a" then "a.b" is deterministic
	sort.Strings(keys)

	paths := make(map[string][]string, len(keys))
	for _, key := range keys {
		path, err := k.resolve(key)
		if err != nil {
			return nil, err
		}
		paths[key] = path
	}

	out := doc.Clone()
	for _, key := range keys {
		path := paths[key]
		value := cloneValue(patch[key])
		if len(path) == 0 {
			obj, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be an object", common.ErrValidation, k.Root)
			}
			for _, child := range sortedKeys(obj) {
				if k.forbidden(child) {
					return nil, fmt.Errorf("%w: field %q cannot be updated", common.ErrValidation, k.Root+"."+child)
				}
			}
			out = Document(obj)
			continue
		}
		if err := setPath(out, path, value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, key, err)
		}
	}
	return out, nil
}

// resolve turns a patch key into a path inside the document. An empty path
// means the whole document.
func (k Kind) resolve(key string) ([]string, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: empty field name", common.ErrValidation)
	}
	segments := strings.Split(key, ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: malformed field path %q", common.ErrValidation, key)
		}
	}
	if k.forbidden(segments[0]) {
		return nil, fmt.Errorf("%w: field %q cannot be updated", common.ErrValidation, key)
	}
	if k.Root != "" && segments[0] == k.Root {
		segments = segments[1:]
		if len(segments) > 0 && k.forbidden(segments[0]) {
			return nil, fmt.Errorf("%w: field %q cannot be updated", common.ErrValidation, key)
		}
	}
	return segments, nil
}

func (k Kind) forbidden(field string) bool {
	for _, f := range k.Forbidden {
		if f == field {
			return true
		}
	}
	return false
}

func setPath(doc map[string]any, path []string, value any) error {
	cur := doc
	for i, seg := range path[:len(path)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not an object", strings.Join(path[:i+1], "."))
		}
		cur = child
	}
	cur[path[len(path)-1]] = value
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
