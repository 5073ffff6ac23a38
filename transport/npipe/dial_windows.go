//go:build windows

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

package npipe

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/Microsoft/go-winio"
)

// dialPipe opens the pipe with go-winio. Slashes in path are converted so
// that //./pipe/name becomes \\.\pipe\name.
func dialPipe(ctx context.Context, path string, timeout time.Duration) (io.ReadWriteCloser, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return winio.DialPipeContext(ctx, filepath.FromSlash(path))
}
