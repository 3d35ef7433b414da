package postgres

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// jsonPath is a parsed jsonpaths expression such as $['artist'] or
// $.song.title, stored as its member names.
type jsonPath []string

// lookup walks obj along the path and returns nil when any member is
// missing.
func (p jsonPath) lookup(obj map[string]any) any {
	var cur any = obj
	for _, member := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[member]; !ok {
			return nil
		}
	}
	return cur
}

// readJSONPaths loads a jsonpaths file: {"jsonpaths": ["$['a']", ...]}.
func readJSONPaths(location string) ([]jsonPath, error) {
	path, err := localPath(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jsonpaths file: %w", err)
	}
	return parseJSONPaths(data)
}

func parseJSONPaths(data []byte) ([]jsonPath, error) {
	var doc struct {
		JSONPaths []string `json:"jsonpaths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid jsonpaths file: %w", err)
	}
	if len(doc.JSONPaths) == 0 {
		return nil, fmt.Errorf("jsonpaths file has no expressions")
	}

	paths := make([]jsonPath, len(doc.JSONPaths))
	for i, expr := range doc.JSONPaths {
		p, err := parsePath(expr)
		if err != nil {
			return nil, fmt.Errorf("jsonpaths expression %d: %w", i+1, err)
		}
		paths[i] = p
	}
	return paths, nil
}

// parsePath accepts bracket notation ($['key'] or $["key"]) and dot
// notation ($.key), which may be mixed. Array indexes are not supported.
func parsePath(expr string) (jsonPath, error) {
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return nil, fmt.Errorf("%q must start with $", expr)
	}
	s = s[1:]

	var p jsonPath
	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, "['") || strings.HasPrefix(s, `["`):
			quote := s[1]
			end := strings.IndexByte(s[2:], quote)
			if end < 0 {
				return nil, fmt.Errorf("%q has an unterminated member name", expr)
			}
			member := s[2 : 2+end]
			rest := s[2+end+1:]
			if !strings.HasPrefix(rest, "]") {
				return nil, fmt.Errorf("%q is missing a closing bracket", expr)
			}
			p = append(p, member)
			s = rest[1:]
		case s[0] == '.':
			s = s[1:]
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			}
			if end == 0 {
				return nil, fmt.Errorf("%q has an empty member name", expr)
			}
			p = append(p, s[:end])
			s = s[end:]
		default:
			return nil, fmt.Errorf("%q is not a supported path expression", expr)
		}
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("%q selects the whole record", expr)
	}
	return p, nil
}
