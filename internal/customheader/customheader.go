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

// Package customheader defines the response header injected by both the
// Wasm plugin and the ext_proc callout.
package customheader

const (
	// Name is the response header set on every exchange.
	Name = "x-wasm-custom"
	// Value is the literal value written under Name.
	Value = "FOO"
)

// Setter replaces the value of a header on the current response, adding it
// when absent.
type Setter func(name, value string) error

// Inject sets Name to Value through set. The error is dropped: the response
// must keep flowing whether or not the header could be written.
func Inject(set Setter) {
	_ = set(Name, Value)
}
