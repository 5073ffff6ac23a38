/*
Copyright The engine-go Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package errdef

import (
	"errors"
	"fmt"
)

// Common errors used in engine-go
var (
	ErrAlreadyConnected      = errors.New("already connected")
	ErrClosed                = errors.New("socket is closed")
	ErrConfigurationConflict = errors.New("configuration conflict")
	ErrCredentialRefresh     = errors.New("credential refresh failed")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotConnected          = errors.New("socket is not connected")
	ErrShutdown              = errors.New("socket direction is shut down")
	ErrUnsupportedAddress    = errors.New("unsupported address type")
	ErrUnsupportedOperation  = errors.New("unsupported operation")
	ErrUnsupportedScheme     = errors.New("unsupported scheme")
)

// RefreshError is returned when the refresh operation of a token-based
// credential supplier fails on a path that does not tolerate the failure.
type RefreshError struct {
	// Source names the supplier that attempted the refresh.
	Source string
	// Err is the error returned by the refresh operation.
	Err error
}

// NewRefreshError wraps err as a RefreshError raised by source.
func NewRefreshError(source string, err error) error {
	return &RefreshError{
		Source: source,
		Err:    err,
	}
}

func (e *RefreshError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%v: %v", ErrCredentialRefresh, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, ErrCredentialRefresh, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCredentialRefresh.
func (e *RefreshError) Is(target error) bool {
	return target == ErrCredentialRefresh
}
