// Copyright 2025 Google LLC.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package customheader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInject(t *testing.T) {
	var got [][2]string
	Inject(func(name, value string) error {
		got = append(got, [2]string{name, value})
		return nil
	})

	assert.Equal(t, [][2]string{{"x-wasm-custom", "FOO"}}, got)
}

func TestInjectIgnoresSetterFailure(t *testing.T) {
	calls := 0
	assert.NotPanics(t, func() {
		Inject(func(name, value string) error {
			calls++
			return errors.New("headers are no longer mutable")
		})
	})
	assert.Equal(t, 1, calls)
}
