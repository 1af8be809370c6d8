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

// Plugin custom_header sets "x-wasm-custom: FOO" on every HTTP response
// passing through the proxy, replacing any value the upstream sent.
package main

import (
	"github.com/tetratelabs/proxy-wasm-go-sdk/proxywasm"
	"github.com/tetratelabs/proxy-wasm-go-sdk/proxywasm/types"

	"github.com/wasm-custom/response-header/internal/customheader"
)

func main() {
	proxywasm.SetVMContext(newVMContext())
}

type vmContext struct {
	types.DefaultVMContext
	setHeader customheader.Setter
}

func newVMContext() *vmContext {
	return &vmContext{setHeader: proxywasm.ReplaceHttpResponseHeader}
}

// NewPluginContext is called once per plugin activation.
func (vc *vmContext) NewPluginContext(contextID uint32) types.PluginContext {
	return &pluginContext{setHeader: vc.setHeader}
}

type pluginContext struct {
	types.DefaultPluginContext
	setHeader customheader.Setter
}

// NewHttpContext is called for each new HTTP stream. It cannot fail and
// carries nothing over from earlier streams.
func (pc *pluginContext) NewHttpContext(contextID uint32) types.HttpContext {
	return &httpContext{setHeader: pc.setHeader}
}

type httpContext struct {
	types.DefaultHttpContext
	setHeader customheader.Setter
}

// OnHttpResponseHeaders overwrites the custom header and always lets the
// response continue. A failed host-call is neither logged nor escalated.
func (ctx *httpContext) OnHttpResponseHeaders(numHeaders int, endOfStream bool) types.Action {
	customheader.Inject(ctx.setHeader)
	return types.ActionContinue
}
