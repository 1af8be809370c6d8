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

package utils

import (
	base "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	httpstatus "github.com/envoyproxy/go-control-plane/envoy/type/v3"
)

// HeaderImmediateResponse creates an ImmediateResponse with the given status code and headers.
// The headers can be appended if appendAction is provided.
func HeaderImmediateResponse(code httpstatus.StatusCode, headers []struct{ Key, Value string }, appendAction *base.HeaderValueOption_HeaderAppendAction) *extproc.ImmediateResponse {
	immediateResponse := &extproc.ImmediateResponse{
		Status: &httpstatus.HttpStatus{
			Code: code,
		},
	}

	if len(headers) > 0 {
		immediateResponse.Headers = &extproc.HeaderMutation{
			SetHeaders: headerValueOptions(headers, appendAction),
		}
	}
	return immediateResponse
}

// AddHeaderMutation creates a HeadersResponse with the given headers to add and remove.
// It also allows clearing the route cache and setting an append action for the headers.
func AddHeaderMutation(add []struct{ Key, Value string }, remove []string, clearRouteCache bool, appendAction *base.HeaderValueOption_HeaderAppendAction) *extproc.HeadersResponse {
	headerMutation := &extproc.HeaderMutation{
		SetHeaders: headerValueOptions(add, appendAction),
	}
	if remove != nil {
		headerMutation.RemoveHeaders = append(headerMutation.RemoveHeaders, remove...)
	}

	return &extproc.HeadersResponse{
		Response: &extproc.CommonResponse{
			HeaderMutation:  headerMutation,
			ClearRouteCache: clearRouteCache,
		},
	}
}

// SetHeaderMutation creates a HeadersResponse that writes a single header,
// replacing any value already present under that name.
func SetHeaderMutation(key, value string) *extproc.HeadersResponse {
	overwrite := base.HeaderValueOption_OVERWRITE_IF_EXISTS_OR_ADD
	return AddHeaderMutation([]struct{ Key, Value string }{{Key: key, Value: value}}, nil, false, &overwrite)
}

func headerValueOptions(headers []struct{ Key, Value string }, appendAction *base.HeaderValueOption_HeaderAppendAction) []*base.HeaderValueOption {
	var options []*base.HeaderValueOption
	for _, h := range headers {
		option := &base.HeaderValueOption{
			Header: &base.HeaderValue{
				Key:      h.Key,
				RawValue: []byte(h.Value),
			},
		}
		if appendAction != nil {
			option.AppendAction = *appendAction
		}
		options = append(options, option)
	}
	return options
}
