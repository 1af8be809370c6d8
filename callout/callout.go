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

// Package callout serves the x-wasm-custom response header as an ext_proc
// callout, for proxies that run extensions out of process.
package callout

import (
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"

	"github.com/wasm-custom/response-header/internal/customheader"
	"github.com/wasm-custom/response-header/internal/server"
	"github.com/wasm-custom/response-header/pkg/utils"
)

// CalloutService sets the custom header on every response it is asked to process.
type CalloutService struct {
	server.GRPCCalloutService
}

// NewCalloutService creates a CalloutService with its response headers handler registered.
func NewCalloutService() *CalloutService {
	service := &CalloutService{}
	service.Handlers.ResponseHeadersHandler = service.HandleResponseHeaders
	return service
}

// HandleResponseHeaders replaces the custom header on the outgoing response.
// Existing headers are not inspected.
func (s *CalloutService) HandleResponseHeaders(headers *extproc.HttpHeaders) (*extproc.ProcessingResponse, error) {
	var mutation *extproc.HeadersResponse
	customheader.Inject(func(name, value string) error {
		mutation = utils.SetHeaderMutation(name, value)
		return nil
	})
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ResponseHeaders{
			ResponseHeaders: mutation,
		},
	}, nil
}
