package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

var dateInputs = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// formatter resolves a named column format such as "upper",
// "number:2", "date:02 Jan 2006" or "truncate:20".
func formatter(spec string) (core.RenderFunc, error) {
	name, arg, _ := strings.Cut(spec, ":")
	switch name {
	case "upper":
		return func(v any, _ core.Row) any { return strings.ToUpper(core.ToString(v)) }, nil
	case "lower":
		return func(v any, _ core.Row) any { return strings.ToLower(core.ToString(v)) }, nil
	case "title":
		caser := cases.Title(language.Und)
		return func(v any, _ core.Row) any { return caser.String(core.ToString(v)) }, nil
	case "number":
		prec := 0
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid precision %q", arg)
			}
			prec = n
		}
		return func(v any, _ core.Row) any {
			f, ok := core.ToFloat(v)
			if !ok {
				return v
			}
			return strconv.FormatFloat(f, 'f', prec, 64)
		}, nil
	case "date":
		layout := arg
		if layout == "" {
			layout = "2006-01-02"
		}
		return func(v any, _ core.Row) any {
			switch t := v.(type) {
			case time.Time:
				return t.Format(layout)
			case string:
				for _, in := range dateInputs {
					if parsed, err := time.Parse(in, t); err == nil {
						return parsed.Format(layout)
					}
				}
			}
			return v
		}, nil
	case "truncate":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid length %q", arg)
		}
		return func(v any, _ core.Row) any {
			r := []rune(core.ToString(v))
			if len(r) <= n {
				return string(r)
			}
			return string(r[:n]) + "..."
		}, nil
	case "yesno":
		return func(v any, _ core.Row) any {
			switch core.Fold(core.ToString(v)) {
			case "1", "true", "yes", "y", "t":
				return "Yes"
			case "", "0", "false", "no", "n", "f":
				return "No"
			}
			return v
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q", spec)
}
