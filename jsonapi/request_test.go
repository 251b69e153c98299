package jsonapi_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/mitranim/rql"
	"github.com/mitranim/rql/jsonapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	t.Run(`defaults`, func(t *testing.T) {
		req, err := jsonapi.ParseRequest(url.Values{}, 0)
		require.NoError(t, err)
		assert.Equal(t, jsonapi.Page{Number: 1, Size: jsonapi.DefaultPageSize}, req.Page)
		assert.Nil(t, req.Fields)
		assert.Empty(t, req.Include)
		assert.True(t, req.Filter.IsEmpty())
	})

	t.Run(`all parameters`, func(t *testing.T) {
		vals, err := url.ParseQuery(`page[number]=3&page[size]=5&fields[articles]=title,rating&fields[people]=&sort=-rating&include=author&filter=eq(title,go)`)
		require.NoError(t, err)

		req, err := jsonapi.ParseRequest(vals, 20)
		require.NoError(t, err)

		assert.Equal(t, jsonapi.Page{Number: 3, Size: 5}, req.Page)
		assert.Equal(t, 10, req.Page.Offset())
		assert.Equal(t, []string{`title`, `rating`}, req.FieldsFor(`articles`))
		assert.Equal(t, []string{}, req.FieldsFor(`people`))
		assert.Nil(t, req.FieldsFor(`comments`))
		assert.Equal(t, `-rating`, req.Sort)
		assert.Equal(t, []string{`author`}, req.Include)
		assert.Equal(t, rql.Eq(`title`, `go`), req.Filter.Filter)
	})

	t.Run(`filter is decoded once`, func(t *testing.T) {
		vals, err := url.ParseQuery(`filter=eq%28title%2C100%25%29`)
		require.NoError(t, err)

		req, err := jsonapi.ParseRequest(vals, 0)
		require.NoError(t, err)
		assert.Equal(t, rql.Eq(`title`, `100%`), req.Filter.Filter)

		vals, err = url.ParseQuery(`filter=eq%28title%2C100%2525%29`)
		require.NoError(t, err)

		req, err = jsonapi.ParseRequest(vals, 0)
		require.NoError(t, err)
		assert.Equal(t, rql.Eq(`title`, `100%25`), req.Filter.Filter)
	})

	t.Run(`clamps the page size`, func(t *testing.T) {
		req, err := jsonapi.ParseRequest(url.Values{`page[size]`: {`1000`}}, 0)
		require.NoError(t, err)
		assert.Equal(t, jsonapi.MaxPageSize, req.Page.Size)
	})

	t.Run(`rejects invalid input`, func(t *testing.T) {
		inputs := []url.Values{
			{`page[number]`: {`0`}},
			{`page[number]`: {`two`}},
			{`page[size]`: {`-1`}},
			{`filter`: {`eq(title`}},
		}
		for _, vals := range inputs {
			_, err := jsonapi.ParseRequest(vals, 0)
			assert.True(t, errors.Is(err, rql.ErrRejected), `%v: %+v`, vals, err)
		}
	})
}

func TestMarshal(t *testing.T) {
	type Record struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Rating int64  `json:"rating"`
	}
	rec := Record{ID: `a1`, Title: `Go`, Rating: 5}

	t.Run(`full`, func(t *testing.T) {
		res, err := jsonapi.Marshal(`articles`, rec, nil)
		require.NoError(t, err)
		assert.Equal(t, `articles`, res.Type)
		assert.Equal(t, `a1`, res.ID)
		assert.Len(t, res.Attributes, 2)
		assert.Equal(t, `Go`, res.Attributes[`title`])
	})

	t.Run(`sparse`, func(t *testing.T) {
		res, err := jsonapi.Marshal(`articles`, &rec, []string{`rating`, `missing`})
		require.NoError(t, err)
		assert.Equal(t, `a1`, res.ID)
		assert.Equal(t, []string{`rating`}, keys(res.Attributes))
	})

	t.Run(`empty fieldset`, func(t *testing.T) {
		res, err := jsonapi.Marshal(`articles`, rec, []string{})
		require.NoError(t, err)
		assert.Empty(t, res.Attributes)
	})

	t.Run(`rejects non-objects`, func(t *testing.T) {
		_, err := jsonapi.Marshal(`articles`, 10, nil)
		assert.Error(t, err)
	})
}

func TestErrorFor(t *testing.T) {
	assert.Equal(t, jsonapi.Error{
		Status: `400`,
		Code:   `BAD_REQUEST`,
		Title:  `Bad Request`,
		Detail: `oops`,
	}, jsonapi.ErrorFor(400, `oops`))
}

func keys(dict map[string]interface{}) []string {
	out := make([]string, 0, len(dict))
	for key := range dict {
		out = append(out, key)
	}
	return out
}
