// Package rpcjson carries connect RPCs as plain JSON so services can use
// ordinary Go structs as messages.
package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cdlfantasy/league/go/internal/models"
)

// Codec marshals connect messages with encoding/json. It registers under
// the "json" name so application/json requests resolve to it.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// Options returns the handler options every JSON service shares.
func Options(extra ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, extra...)
}

// Mux collects unary procedures for one service.
type Mux struct {
	mux  *http.ServeMux
	opts []connect.HandlerOption
}

// NewMux creates a procedure mux with the JSON codec installed.
func NewMux(opts ...connect.HandlerOption) *Mux {
	return &Mux{mux: http.NewServeMux(), opts: Options(opts...)}
}

// Handle registers a unary procedure such as "/draft.v1.DraftService/MakePick".
func Handle[Req, Res any](m *Mux, procedure string, fn func(context.Context, *Req) (*Res, error)) {
	m.mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(res), nil
		},
		m.opts...,
	))
}

// ServeHTTP implements http.Handler.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// ErrorMapper reports the connect code for a domain error, or false to
// fall through.
type ErrorMapper func(err error) (connect.Code, bool)

// Error converts err to a connect error. Store-level not-found errors map
// to NotFound; anything unmapped is Internal.
func Error(err error, mappers ...ErrorMapper) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}
	for _, m := range mappers {
		if code, ok := m(err); ok {
			return connect.NewError(code, err)
		}
	}
	if errors.Is(err, models.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// InvalidArgument wraps a request decoding problem.
func InvalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}
