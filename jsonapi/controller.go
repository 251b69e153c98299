package jsonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mitranim/rql"
	"github.com/mitranim/rql/sqlrepo"
	"github.com/rs/zerolog"
)

// Storage used by `Controller`. Implemented by `*sqlrepo.Repo`.
type Repository interface {
	Ords() rql.Ords
	Count(ctx context.Context, query rql.Query) (int, error)
	List(ctx context.Context, query rql.Query, ords rql.Ords, limit, offset int) ([]interface{}, error)
	Find(ctx context.Context, id string) (interface{}, error)
	Create(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error)
	Replace(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error)
	Patch(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error)
	Delete(ctx context.Context, id string) error
}

var _ = Repository((*sqlrepo.Repo)(nil))

// Route served by a controller. `.Path` is relative to the group.
type Route struct {
	Name    string
	Method  string
	Path    string
	Handler echo.HandlerFunc
}

/*
Resource controller for one resource type. Use `New` for defaults, then
`Register` it on an echo group:

	ctrl := jsonapi.New(`articles`, repo)
	ctrl.Register(app.Group(`/articles`))

Errors are written as JSON:API error documents: rejected input is 400, missing
records are 404, type or id mismatches are 409, anything else is 500 and is
logged.
*/
type Controller struct {
	Type     string
	Repo     Repository
	PageSize int
	Headers  map[string]string
	Log      zerolog.Logger
}

func New(typ string, repo Repository) *Controller {
	return &Controller{
		Type:     typ,
		Repo:     repo,
		PageSize: DefaultPageSize,
		Log:      zerolog.Nop(),
	}
}

// Routes in registration order.
func (self *Controller) Routes() []Route {
	return []Route{
		{self.routeName(`index`), http.MethodGet, ``, self.Index},
		{self.routeName(`create`), http.MethodGet, `/create`, self.Create},
		{self.routeName(`store`), http.MethodPost, ``, self.Store},
		{self.routeName(`show`), http.MethodGet, `/:id`, self.Show},
		{self.routeName(`edit`), http.MethodGet, `/:id/edit`, self.Edit},
		{self.routeName(`replace`), http.MethodPut, `/:id`, self.Update},
		{self.routeName(`update`), http.MethodPatch, `/:id`, self.Update},
		{self.routeName(`destroy`), http.MethodDelete, `/:id`, self.Destroy},
	}
}

// Adds the routes to the group. Route names are prefixed with the type.
func (self *Controller) Register(group *echo.Group) {
	for _, route := range self.Routes() {
		group.Add(route.Method, route.Path, route.Handler).Name = route.Name
	}
}

// Paginated collection.
func (self *Controller) Index(c echo.Context) error {
	ctx := self.context(c)

	req, err := ParseRequest(c.QueryParams(), self.PageSize)
	if err != nil {
		return self.fail(c, err)
	}
	err = self.checkInclude(req)
	if err != nil {
		return self.fail(c, err)
	}

	ords := self.Repo.Ords()
	if req.Sort != `` {
		err = ords.ParseSort(req.Sort)
	} else {
		err = ords.FromSort(req.Filter.Sort)
	}
	if err != nil {
		return self.fail(c, err)
	}

	total, err := self.Repo.Count(ctx, req.Filter)
	if err != nil {
		return self.fail(c, err)
	}

	records, err := self.Repo.List(ctx, req.Filter, ords, req.Page.Size, req.Page.Offset())
	if err != nil {
		return self.fail(c, err)
	}

	data, err := MarshalSlice(self.Type, records, self.fieldsFor(req))
	if err != nil {
		return self.fail(c, err)
	}
	for i := range data {
		data[i].Links = self.resourceLinks(c, data[i].ID)
	}

	last := lastPage(total, req.Page.Size)
	return self.write(c, http.StatusOK, Document{
		Data:  data,
		Links: pageLinks(c.Request().URL, req.Page, last),
		Meta: map[string]interface{}{
			`page`: map[string]interface{}{
				`total`:  total,
				`last`:   last,
				`number`: req.Page.Number,
				`size`:   req.Page.Size,
			},
		},
	})
}

// Single resource.
func (self *Controller) Show(c echo.Context) error {
	req, err := ParseRequest(c.QueryParams(), self.PageSize)
	if err != nil {
		return self.fail(c, err)
	}
	err = self.checkInclude(req)
	if err != nil {
		return self.fail(c, err)
	}

	record, err := self.Repo.Find(self.context(c), c.Param(`id`))
	if err != nil {
		return self.fail(c, err)
	}
	return self.writeRecord(c, http.StatusOK, record, self.fieldsFor(req))
}

// Creates a resource from the request body. Responds with 201 and "Location".
func (self *Controller) Store(c echo.Context) error {
	res, err := self.decodeBody(c)
	if err != nil {
		return self.fail(c, err)
	}

	record, err := self.Repo.Create(self.context(c), res.ID, res.Attributes)
	if err != nil {
		return self.fail(c, err)
	}

	out, err := Marshal(self.Type, record, nil)
	if err != nil {
		return self.fail(c, err)
	}
	out.Links = self.resourceLinks(c, out.ID)
	if out.Links != nil {
		c.Response().Header().Set(echo.HeaderLocation, out.Links.Self)
	}
	return self.write(c, http.StatusCreated, Document{Data: out})
}

// PUT replaces every attribute of the resource; PATCH changes only the given ones.
func (self *Controller) Update(c echo.Context) error {
	id := c.Param(`id`)

	res, err := self.decodeBody(c)
	if err != nil {
		return self.fail(c, err)
	}
	if res.ID != `` && res.ID != id {
		return self.failWith(c, http.StatusConflict, fmt.Sprintf(`resource id %q doesn't match the URL id %q`, res.ID, id))
	}

	var record interface{}
	if c.Request().Method == http.MethodPut {
		record, err = self.Repo.Replace(self.context(c), id, res.Attributes)
	} else {
		record, err = self.Repo.Patch(self.context(c), id, res.Attributes)
	}
	if err != nil {
		return self.fail(c, err)
	}
	return self.writeRecord(c, http.StatusOK, record, nil)
}

// Deletes the resource. Responds with 204.
func (self *Controller) Destroy(c echo.Context) error {
	err := self.Repo.Delete(self.context(c), c.Param(`id`))
	if err != nil {
		return self.fail(c, err)
	}
	self.setHeaders(c)
	return c.NoContent(http.StatusNoContent)
}

// Form pages are not served by an API; always 404.
func (self *Controller) Create(c echo.Context) error {
	return self.failWith(c, http.StatusNotFound, `resource not found`)
}

// Form pages are not served by an API; always 404.
func (self *Controller) Edit(c echo.Context) error {
	return self.failWith(c, http.StatusNotFound, `resource not found`)
}

func (self *Controller) routeName(action string) string { return self.Type + `.` + action }

func (self *Controller) context(c echo.Context) context.Context {
	req := c.Request()
	log := self.Log.With().
		Str(`type`, self.Type).
		Str(`method`, req.Method).
		Str(`path`, req.URL.Path).
		Logger()

	ctx := log.WithContext(req.Context())
	c.SetRequest(req.WithContext(ctx))
	return ctx
}

func (self *Controller) checkInclude(req Request) error {
	if len(req.Include) > 0 {
		return fmt.Errorf(`[jsonapi] %w: inclusion of related resources is not supported`, rql.ErrRejected)
	}
	return nil
}

/*
Sparse fieldset for the controller's type. Falls back on the RQL `select(...)`
clause of the filter when "fields[<type>]" is absent.
*/
func (self *Controller) fieldsFor(req Request) []string {
	fields := req.FieldsFor(self.Type)
	if fields == nil && req.Filter.Select != nil {
		fields = req.Filter.Select.Fields
	}
	return fields
}

func (self *Controller) decodeBody(c echo.Context) (Resource, error) {
	var body resourceBody
	err := json.NewDecoder(c.Request().Body).Decode(&body)
	if err != nil {
		return Resource{}, fmt.Errorf(`[jsonapi] %w: malformed request body: %v`, rql.ErrRejected, err)
	}
	if body.Data == nil {
		return Resource{}, fmt.Errorf(`[jsonapi] %w: missing primary data`, rql.ErrRejected)
	}
	if body.Data.Type != self.Type {
		return Resource{}, typeConflict{expected: self.Type, actual: body.Data.Type}
	}
	return *body.Data, nil
}

func (self *Controller) resourceLinks(c echo.Context, id string) *Links {
	if id == `` {
		return nil
	}
	path := c.Echo().Reverse(self.routeName(`show`), id)
	if path == `` {
		return nil
	}
	return &Links{Self: path}
}

func (self *Controller) writeRecord(c echo.Context, status int, record interface{}, fields []string) error {
	out, err := Marshal(self.Type, record, fields)
	if err != nil {
		return self.fail(c, err)
	}
	out.Links = self.resourceLinks(c, out.ID)
	return self.write(c, status, Document{Data: out})
}

func (self *Controller) write(c echo.Context, status int, doc Document) error {
	doc.JsonApi = &JsonApi{Version: Version}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	self.setHeaders(c)
	return c.Blob(status, MediaType, body)
}

func (self *Controller) setHeaders(c echo.Context) {
	header := c.Response().Header()
	for key, val := range self.Headers {
		header.Set(key, val)
	}
}

func (self *Controller) fail(c echo.Context, err error) error {
	var conflict typeConflict

	switch {
	case errors.As(err, &conflict):
		return self.failWith(c, http.StatusConflict, conflict.Error())

	case errors.Is(err, rql.ErrRejected):
		zerolog.Ctx(c.Request().Context()).Debug().Err(err).Msg(`rejected request`)
		return self.failWith(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, sqlrepo.ErrNotFound):
		return self.failWith(c, http.StatusNotFound, err.Error())

	case errors.Is(err, sqlrepo.ErrConflict):
		return self.failWith(c, http.StatusConflict, err.Error())

	default:
		log := self.Log.With().
			Str(`type`, self.Type).
			Str(`method`, c.Request().Method).
			Str(`path`, c.Request().URL.Path).
			Logger()
		log.Error().Err(err).Msg(`request failed`)
		return self.failWith(c, http.StatusInternalServerError, ``)
	}
}

func (self *Controller) failWith(c echo.Context, status int, detail string) error {
	return self.write(c, status, Document{Errors: []Error{ErrorFor(status, detail)}})
}

type typeConflict struct {
	expected string
	actual   string
}

func (self typeConflict) Error() string {
	return fmt.Sprintf(`[jsonapi] resource type %q doesn't match the collection type %q`, self.actual, self.expected)
}

func lastPage(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Collection links preserving the request's other query parameters.
func pageLinks(src *url.URL, page Page, last int) *Links {
	link := func(num int) string {
		vals := src.Query()
		vals.Set(`page[number]`, strconv.Itoa(num))
		vals.Set(`page[size]`, strconv.Itoa(page.Size))

		out := url.URL{Path: src.Path, RawQuery: vals.Encode()}
		return out.String()
	}

	out := &Links{
		Self:  link(page.Number),
		First: link(1),
		Last:  link(last),
	}
	if page.Number > 1 {
		out.Prev = link(page.Number - 1)
	}
	if page.Number < last {
		out.Next = link(page.Number + 1)
	}
	return out
}
