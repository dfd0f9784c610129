package commands

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// RequestOptions are the flags that shape a table request from the
// command line.
type RequestOptions struct {
	Search  string
	Filters []string // key=value or key.sub=value
	Order   []string // column[:asc|desc]
	Start   int
	Length  int
}

func (o *RequestOptions) addFlags(cmd *cobra.Command, withWindow bool) {
	cmd.Flags().StringVarP(&o.Search, "search", "s", "", "Global search text")
	cmd.Flags().StringArrayVarP(&o.Filters, "filter", "f", nil, "Filter value as key=value (ranges: price.min=10)")
	cmd.Flags().StringArrayVar(&o.Order, "order", nil, "Order by column key, optionally suffixed with :asc or :desc")
	if withWindow {
		cmd.Flags().IntVar(&o.Start, "start", 0, "Offset of the first row")
		cmd.Flags().IntVarP(&o.Length, "length", "n", 0, "Rows per page (default: the table's page length)")
	}
}

// Request converts the flags to the form encoding the HTTP clients use,
// so the command line goes through the same parser.
func (o *RequestOptions) Request(t *datatable.Table) (datatable.Request, error) {
	v := url.Values{}
	v.Set("draw", "1")
	v.Set("start", strconv.Itoa(o.Start))
	if o.Length > 0 {
		v.Set("length", strconv.Itoa(o.Length))
	}
	if o.Search != "" {
		v.Set("search[value]", o.Search)
	}

	for _, f := range o.Filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return datatable.Request{}, fmt.Errorf("invalid filter %q: expected key=value", f)
		}
		v.Set("filters["+strings.Join(strings.Split(key, "."), "][")+"]", value)
	}

	all := t.Columns().All()
	for i, spec := range o.Order {
		key, dir, _ := strings.Cut(spec, ":")
		idx := -1
		for j, c := range all {
			if c.Key == key {
				idx = j
				break
			}
		}
		if idx < 0 {
			return datatable.Request{}, fmt.Errorf("unknown column %q in --order", key)
		}
		if dir == "" {
			dir = "asc"
		}
		v.Set(fmt.Sprintf("order[%d][column]", i), strconv.Itoa(idx))
		v.Set(fmt.Sprintf("order[%d][dir]", i), dir)
	}

	return datatable.ParseValues(v), nil
}
