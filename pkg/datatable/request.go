package datatable

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// OrderEntry is one sort request, naming a column by its position in the
// table's full column list.
type OrderEntry struct {
	Column int    `json:"column"`
	Dir    string `json:"dir"`
}

// Request is a client request as received, before clamping and
// validation. Draw is nil when the client sent none.
type Request struct {
	Draw    *int           `json:"draw,omitempty"`
	Start   int            `json:"start"`
	Length  int            `json:"length"`
	Search  string         `json:"search"`
	Order   []OrderEntry   `json:"order"`
	Filters map[string]any `json:"filters"`
}

// ParseValues reads a form-encoded request:
//
//	draw=3&start=0&length=25&search[value]=jo
//	order[0][column]=1&order[0][dir]=desc
//	filters[status]=active&filters[price][min]=10
func ParseValues(v url.Values) Request {
	req := Request{
		Draw:   optInt(v.Get("draw")),
		Start:  atoi(v.Get("start")),
		Length: atoi(v.Get("length")),
		Search: v.Get("search[value]"),
	}
	if req.Search == "" {
		req.Search = v.Get("search")
	}

	orders := make(map[int]*OrderEntry)
	for key, values := range v {
		if len(values) == 0 {
			continue
		}
		path, ok := bracketPath(key)
		if !ok {
			continue
		}
		switch path[0] {
		case "order":
			if len(path) != 3 {
				continue
			}
			i, err := strconv.Atoi(path[1])
			if err != nil || i < 0 {
				continue
			}
			entry, ok := orders[i]
			if !ok {
				entry = &OrderEntry{Column: -1, Dir: "asc"}
				orders[i] = entry
			}
			switch path[2] {
			case "column":
				if n, err := strconv.Atoi(values[0]); err == nil {
					entry.Column = n
				}
			case "dir":
				entry.Dir = values[0]
			}
		case "filters":
			if len(path) < 2 {
				continue
			}
			if req.Filters == nil {
				req.Filters = make(map[string]any)
			}
			setPath(req.Filters, path[1:], values[0])
		}
	}

	indexes := make([]int, 0, len(orders))
	for i := range orders {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	for _, i := range indexes {
		req.Order = append(req.Order, *orders[i])
	}
	return req
}

// bracketPath splits "a[b][c]" into ["a", "b", "c"].
func bracketPath(key string) ([]string, bool) {
	head, rest, found := strings.Cut(key, "[")
	if !found || !strings.HasSuffix(rest, "]") {
		return nil, false
	}
	return append([]string{head}, strings.Split(strings.TrimSuffix(rest, "]"), "][")...), true
}

func setPath(m map[string]any, path []string, value string) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	setPath(child, path[1:], value)
}

// optInt parses s, returning nil when it is empty or not a number.
func optInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseJSON reads a JSON request. Integers may be sent as numbers or
// strings, and search may be a string or {"value": "..."}.
func ParseJSON(r io.Reader) (Request, error) {
	var raw struct {
		Draw    flexInt         `json:"draw"`
		Start   flexInt         `json:"start"`
		Length  flexInt         `json:"length"`
		Search  json.RawMessage `json:"search"`
		Order   []struct {
			Column flexInt `json:"column"`
			Dir    string  `json:"dir"`
		} `json:"order"`
		Filters map[string]any `json:"filters"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Request{}, fmt.Errorf("failed to decode request: %w", err)
	}

	req := Request{
		Start:   raw.Start.n,
		Length:  raw.Length.n,
		Filters: raw.Filters,
	}
	if raw.Draw.ok {
		draw := raw.Draw.n
		req.Draw = &draw
	}
	for _, o := range raw.Order {
		req.Order = append(req.Order, OrderEntry{Column: o.Column.n, Dir: o.Dir})
	}

	if len(raw.Search) > 0 {
		var s string
		if err := json.Unmarshal(raw.Search, &s); err == nil {
			req.Search = s
		} else {
			var obj struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(raw.Search, &obj); err == nil {
				req.Search = obj.Value
			}
		}
	}
	return req, nil
}

// flexInt accepts a number or a numeric string. Anything else, null
// included, leaves it unset.
type flexInt struct {
	n  int
	ok bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := n.Int64(); err == nil {
		*f = flexInt{n: int(i), ok: true}
		return nil
	}
	if fl, err := n.Float64(); err == nil {
		*f = flexInt{n: int(fl), ok: true}
	}
	return nil
}
