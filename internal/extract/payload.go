package extract

import (
	"strings"

	json "github.com/goccy/go-json"
)

// payloadMarkers precede an inline JSON object carrying the profile's user node.
var payloadMarkers = []string{
	"window._sharedData = ",
	"window.__additionalDataLoaded(",
	`"graphql":`,
	`{"data":{"user":`,
}

// EmbeddedPayload reads counts from an inline structured-data block.
func EmbeddedPayload(content string, _ Baseline) (Result, bool) {
	for _, marker := range payloadMarkers {
		offset := 0
		for {
			idx := strings.Index(content[offset:], marker)
			if idx < 0 {
				break
			}
			idx += offset
			start := idx + len(marker)
			if marker[0] == '{' {
				start = idx
			}
			if res, ok := parsePayloadAt(content, start); ok {
				return res, true
			}
			offset = idx + len(marker)
		}
	}
	return Result{}, false
}

func parsePayloadAt(content string, from int) (Result, bool) {
	open := strings.IndexByte(content[from:], '{')
	if open < 0 {
		return Result{}, false
	}
	obj, ok := balancedObject(content[from+open:])
	if !ok {
		return Result{}, false
	}

	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return Result{}, false
	}

	user := findUserNode(root, 0)
	if user == nil {
		return Result{}, false
	}
	followers, ok := edgeCount(user, "edge_followed_by")
	if !ok {
		return Result{}, false
	}
	following, ok := edgeCount(user, "edge_follow")
	if !ok {
		return Result{}, false
	}
	posts, ok := edgeCount(user, "edge_owner_to_timeline_media")
	if !ok {
		posts = 0
	}
	return Result{Followers: followers, Following: following, Posts: posts}, true
}

// balancedObject returns the JSON object starting at s[0], honouring string literals.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

const maxPayloadDepth = 16

// findUserNode walks the decoded payload for the object holding the follower edge.
func findUserNode(v any, depth int) map[string]any {
	if depth > maxPayloadDepth {
		return nil
	}
	switch node := v.(type) {
	case map[string]any:
		if _, ok := node["edge_followed_by"]; ok {
			return node
		}
		for _, child := range node {
			if found := findUserNode(child, depth+1); found != nil {
				return found
			}
		}
	case []any:
		for _, child := range node {
			if found := findUserNode(child, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

func edgeCount(user map[string]any, edge string) (int64, bool) {
	e, ok := user[edge].(map[string]any)
	if !ok {
		return 0, false
	}
	n, ok := e["count"].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
