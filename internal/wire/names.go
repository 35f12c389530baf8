package wire

import (
	"fmt"
	"strings"
)

// #region name
// Name is a parsed service resource name of the form
// projects/{p}/brains/{b}[/sessions/{s}[/episodes/{e}|/assignments/{a}]]
// [/snapshots/{n}][/models/{m}]. Keys appear in that order only, at most
// once each; episodes and assignments are mutually exclusive.
type Name struct {
	Project    string
	Brain      string
	Session    string
	Episode    string
	Assignment string
	Snapshot   string
	Model      string
}

// #endregion name

// #region parse
// Key ranks enforce the fixed ordering; episodes and assignments share a
// rank so at most one of them can appear.
var nameRanks = map[string]int{
	"projects":    0,
	"brains":      1,
	"sessions":    2,
	"episodes":    3,
	"assignments": 3,
	"snapshots":   4,
	"models":      5,
}

// ParseName parses a resource name, rejecting unknown keys, out-of-order
// keys, duplicates, and empty values.
func ParseName(s string) (Name, error) {
	var n Name
	parts := strings.Split(s, "/")
	if len(parts)%2 != 0 {
		return n, fmt.Errorf("malformed resource name %q: odd segment count", s)
	}
	prevRank := -1
	for i := 0; i < len(parts); i += 2 {
		key, val := parts[i], parts[i+1]
		rank, ok := nameRanks[key]
		if !ok {
			return n, fmt.Errorf("malformed resource name %q: unknown key %q", s, key)
		}
		if rank <= prevRank {
			return n, fmt.Errorf("malformed resource name %q: key %q out of order or duplicated", s, key)
		}
		if val == "" {
			return n, fmt.Errorf("malformed resource name %q: empty value for %q", s, key)
		}
		prevRank = rank
		switch key {
		case "projects":
			n.Project = val
		case "brains":
			n.Brain = val
		case "sessions":
			n.Session = val
		case "episodes":
			n.Episode = val
		case "assignments":
			n.Assignment = val
		case "snapshots":
			n.Snapshot = val
		case "models":
			n.Model = val
		}
	}
	if n.Project == "" || n.Brain == "" {
		return n, fmt.Errorf("malformed resource name %q: projects and brains are required", s)
	}
	if (n.Episode != "" || n.Assignment != "") && n.Session == "" {
		return n, fmt.Errorf("malformed resource name %q: episodes/assignments require sessions", s)
	}
	return n, nil
}

// #endregion parse

// #region format
// String renders the name in canonical key order, skipping empty segments.
func (n Name) String() string {
	var b strings.Builder
	pair := func(key, val string) {
		if val == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(key)
		b.WriteByte('/')
		b.WriteString(val)
	}
	pair("projects", n.Project)
	pair("brains", n.Brain)
	pair("sessions", n.Session)
	pair("episodes", n.Episode)
	pair("assignments", n.Assignment)
	pair("snapshots", n.Snapshot)
	pair("models", n.Model)
	return b.String()
}

// #endregion format
