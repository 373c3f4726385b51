package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
)

// Backend is the subset of *client.Client the services depend on.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
	Download(ctx context.Context, method, path string, body any) (*client.Document, error)
}

// resource implements the CRUD surface shared by every entity endpoint.
// One method is one HTTP call; errors are returned untouched.
type resource[E any, C any, U any] struct {
	api  Backend
	base string
}

func (r resource[E, C, U]) create(ctx context.Context, req C) (*E, error) {
	var out E
	if err := r.api.Post(ctx, r.base, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[E, C, U]) update(ctx context.Context, id int64, req U) (*E, error) {
	var out E
	if err := r.api.Put(ctx, r.path(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[E, C, U]) delete(ctx context.Context, id int64) error {
	return r.api.Delete(ctx, r.path(id))
}

func (r resource[E, C, U]) getByID(ctx context.Context, id int64) (*E, error) {
	var out E
	if err := r.api.Get(ctx, r.path(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[E, C, U]) list(ctx context.Context, suffix string, query url.Values) ([]E, error) {
	var out []E
	if err := r.api.Get(ctx, r.base+suffix, query, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []E{}
	}
	return out, nil
}

func (r resource[E, C, U]) page(ctx context.Context, suffix string, query url.Values) (model.Page[E], error) {
	var out model.Page[E]
	if err := r.api.Get(ctx, r.base+suffix, query, &out); err != nil {
		return model.Page[E]{}, err
	}
	if out.Content == nil {
		out.Content = []E{}
	}
	return out, nil
}

func (r resource[E, C, U]) path(id int64) string {
	return fmt.Sprintf("%s/%d", r.base, id)
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 0)))
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}

// setID adds key=id to q unless id is zero (unfiltered).
func setID(q url.Values, key string, id int64) {
	if id > 0 {
		q.Set(key, strconv.FormatInt(id, 10))
	}
}
