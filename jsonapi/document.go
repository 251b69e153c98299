/*
Package jsonapi serves repository records as JSON:API resources over echo,
with RQL filtering, JSON:API sorting, sparse fieldsets and page-based
pagination.
*/
package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// JSON:API media type, used for every response with a body.
const MediaType = `application/vnd.api+json`

// Version reported in the "jsonapi" member of every document.
const Version = `1.0`

// Top-level JSON:API document.
type Document struct {
	Data    interface{}            `json:"data,omitempty"`
	Errors  []Error                `json:"errors,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Links   *Links                 `json:"links,omitempty"`
	JsonApi *JsonApi               `json:"jsonapi,omitempty"`
}

type JsonApi struct {
	Version string `json:"version"`
}

type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Resource object. `.Attributes` excludes the key.
type Resource struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Links      *Links                 `json:"links,omitempty"`
}

// Error object. `.Status` is the HTTP status code as a string.
type Error struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

/*
Error object for the given HTTP status. The code is the upper-cased status text,
for example "BAD_REQUEST".
*/
func ErrorFor(status int, detail string) Error {
	title := http.StatusText(status)
	return Error{
		Status: fmt.Sprint(status),
		Code:   strings.ToUpper(strings.ReplaceAll(title, ` `, `_`)),
		Title:  title,
		Detail: detail,
	}
}

/*
Converts a record to a resource object of the given type. The record is encoded
with "encoding/json"; its "id" member becomes the resource id and the rest are
attributes. A non-nil `fields` is a sparse fieldset: only the listed attributes
are kept.
*/
func Marshal(typ string, record interface{}, fields []string) (Resource, error) {
	input, err := json.Marshal(record)
	if err != nil {
		return Resource{}, fmt.Errorf(`[jsonapi] failed to encode %q record: %w`, typ, err)
	}

	var attrs map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	err = dec.Decode(&attrs)
	if err != nil {
		return Resource{}, fmt.Errorf(`[jsonapi] %q record must encode as a JSON object: %w`, typ, err)
	}

	out := Resource{Type: typ}
	if id, ok := attrs[`id`]; ok {
		out.ID = fmt.Sprint(id)
		delete(attrs, `id`)
	}

	if fields != nil {
		keep := make(map[string]bool, len(fields))
		for _, field := range fields {
			keep[field] = true
		}
		for key := range attrs {
			if !keep[key] {
				delete(attrs, key)
			}
		}
	}

	out.Attributes = attrs
	return out, nil
}

// Converts each record with `Marshal`. The output is never nil.
func MarshalSlice(typ string, records []interface{}, fields []string) ([]Resource, error) {
	out := make([]Resource, 0, len(records))
	for _, record := range records {
		res, err := Marshal(typ, record, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Body of create and update requests.
type resourceBody struct {
	Data *Resource `json:"data"`
}
