package jsonapi

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitranim/rql"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var fieldsParamReg = regexp.MustCompile(`^fields\[(\w+)\]$`)

// Requested page. Numbers start at 1.
type Page struct {
	Number int
	Size   int
}

// Offset of the first record of the page.
func (self Page) Offset() int { return (self.Number - 1) * self.Size }

/*
Query parameters of a JSON:API collection or resource request:

	page[number]=2&page[size]=20
	fields[articles]=title,rating
	sort=-rating,title
	include=author
	filter=and(ge(rating,3),like(title,*go*))

`filter` holds RQL text. It's decoded once, along with the rest of the query
string, and then parsed with `rql.ParseQueryDecoded`. `Fields` distinguishes an
absent fieldset (no key) from an empty one (empty slice).
*/
type Request struct {
	Page    Page
	Fields  map[string][]string
	Sort    string
	Include []string
	Filter  rql.Query
}

/*
Parses request parameters. A missing or zero page size falls back to
`pageSize`, and sizes above `MaxPageSize` are clamped. Errors wrap
`rql.ErrRejected`.
*/
func ParseRequest(vals url.Values, pageSize int) (Request, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	out := Request{Page: Page{Number: 1, Size: pageSize}}

	num, err := intParam(vals, `page[number]`)
	if err != nil {
		return out, err
	}
	if num != 0 {
		out.Page.Number = num
	}

	size, err := intParam(vals, `page[size]`)
	if err != nil {
		return out, err
	}
	if size != 0 {
		out.Page.Size = size
	}
	if out.Page.Size > MaxPageSize {
		out.Page.Size = MaxPageSize
	}

	for key := range vals {
		match := fieldsParamReg.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		if out.Fields == nil {
			out.Fields = map[string][]string{}
		}
		out.Fields[match[1]] = splitList(vals.Get(key))
	}

	out.Sort = strings.TrimSpace(vals.Get(`sort`))
	out.Include = splitList(vals.Get(`include`))

	filter := vals.Get(`filter`)
	if filter != `` {
		out.Filter, err = rql.ParseQueryDecoded(filter)
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// Requested fieldset for the resource type, or nil if absent.
func (self Request) FieldsFor(typ string) []string {
	return self.Fields[typ]
}

func intParam(vals url.Values, key string) (int, error) {
	str := strings.TrimSpace(vals.Get(key))
	if str == `` {
		return 0, nil
	}

	out, err := strconv.Atoi(str)
	if err != nil || out < 1 {
		return 0, fmt.Errorf(`[jsonapi] %w: parameter %q must be a positive integer, got %q`, rql.ErrRejected, key, str)
	}
	return out, nil
}

func splitList(str string) []string {
	out := []string{}
	for _, item := range strings.Split(str, `,`) {
		item = strings.TrimSpace(item)
		if item != `` {
			out = append(out, item)
		}
	}
	return out
}
