// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

// HTTPError create an error with http status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest convenience method to create http bad request error.
func BadRequest(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusBadRequest,
	}
}

// Forbidden convenience method to create http forbidden error.
func Forbidden(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusForbidden,
	}
}

// NotFound convenience method to create http not found error.
func NotFound(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusNotFound,
	}
}

// HandlerFunc like http.HandlerFunc, but it returns an error.
// If the returned error is httpError type, httpError.status will be responded,
// otherwise http.StatusInternalServerError responded.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc convert HandlerFunc to http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err != nil {
			if he, ok := err.(*httpError); ok {
				if he.cause != nil {
					http.Error(w, he.cause.Error(), he.status)
				} else {
					w.WriteHeader(he.status)
				}
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// content types
const (
	JSONContentType = "application/json; charset=utf-8"
)

// ParseJSON parse a JSON object using strict mode.
func ParseJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON response an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj interface{}) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// M shortcut for type map[string]interface{}.
type M map[string]interface{}

// PathAddress parses the named mux path variable as an address.
func PathAddress(r *http.Request, name string) (bastion.Address, error) {
	addr, err := bastion.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		return bastion.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

// Amount is a base-unit token amount, encoded in JSON as a decimal string.
type Amount big.Int

// NewAmount wraps a big int, nil treated as zero.
func NewAmount(v *big.Int) *Amount {
	if v == nil {
		return (*Amount)(new(big.Int))
	}
	return (*Amount)(new(big.Int).Set(v))
}

// Big returns the amount as a big int, never nil.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return (*big.Int)(a)
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Big().String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("malformed amount %q", s)
	}
	(*big.Int)(a).Set(v)
	return nil
}
