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

package server

import (
	"errors"
	"io"

	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	httpstatus "github.com/envoyproxy/go-control-plane/envoy/type/v3"

	"github.com/wasm-custom/response-header/pkg/utils"
)

type RequestHeadersHandler func(*extproc.HttpHeaders) (*extproc.ProcessingResponse, error)
type ResponseHeadersHandler func(*extproc.HttpHeaders) (*extproc.ProcessingResponse, error)
type RequestBodyHandler func(*extproc.HttpBody) (*extproc.ProcessingResponse, error)
type ResponseBodyHandler func(*extproc.HttpBody) (*extproc.ProcessingResponse, error)
type RequestTrailersHandler func(*extproc.HttpTrailers) (*extproc.ProcessingResponse, error)
type ResponseTrailersHandler func(*extproc.HttpTrailers) (*extproc.ProcessingResponse, error)

// HandlerRegistry maps each processing phase to its handler. A nil entry
// falls back to the matching pass-through Handle method.
type HandlerRegistry struct {
	RequestHeadersHandler   RequestHeadersHandler
	ResponseHeadersHandler  ResponseHeadersHandler
	RequestBodyHandler      RequestBodyHandler
	ResponseBodyHandler     ResponseBodyHandler
	RequestTrailersHandler  RequestTrailersHandler
	ResponseTrailersHandler ResponseTrailersHandler
}

// GRPCCalloutService is an ext_proc server that dispatches every request on
// a stream to the registered handlers.
type GRPCCalloutService struct {
	extproc.UnimplementedExternalProcessorServer
	Handlers HandlerRegistry
}

// Process receives ProcessingRequests until the proxy closes the stream.
func (s *GRPCCalloutService) Process(stream extproc.ExternalProcessor_ProcessServer) error {
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		response, err := s.dispatch(req)
		if err != nil {
			return err
		}
		if response != nil {
			if err := stream.Send(response); err != nil {
				return err
			}
		}
	}
}

func (s *GRPCCalloutService) dispatch(req *extproc.ProcessingRequest) (*extproc.ProcessingResponse, error) {
	h := s.Handlers
	switch {
	case req.GetRequestHeaders() != nil:
		if h.RequestHeadersHandler != nil {
			return h.RequestHeadersHandler(req.GetRequestHeaders())
		}
		return s.HandleRequestHeaders(req.GetRequestHeaders())
	case req.GetResponseHeaders() != nil:
		if h.ResponseHeadersHandler != nil {
			return h.ResponseHeadersHandler(req.GetResponseHeaders())
		}
		return s.HandleResponseHeaders(req.GetResponseHeaders())
	case req.GetRequestBody() != nil:
		if h.RequestBodyHandler != nil {
			return h.RequestBodyHandler(req.GetRequestBody())
		}
		return s.HandleRequestBody(req.GetRequestBody())
	case req.GetResponseBody() != nil:
		if h.ResponseBodyHandler != nil {
			return h.ResponseBodyHandler(req.GetResponseBody())
		}
		return s.HandleResponseBody(req.GetResponseBody())
	case req.GetRequestTrailers() != nil:
		if h.RequestTrailersHandler != nil {
			return h.RequestTrailersHandler(req.GetRequestTrailers())
		}
		return s.HandleRequestTrailers(req.GetRequestTrailers())
	case req.GetResponseTrailers() != nil:
		if h.ResponseTrailersHandler != nil {
			return h.ResponseTrailersHandler(req.GetResponseTrailers())
		}
		return s.HandleResponseTrailers(req.GetResponseTrailers())
	}
	return s.HandleUnknownRequest(req)
}

func (s *GRPCCalloutService) HandleRequestHeaders(headers *extproc.HttpHeaders) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestHeaders{
			RequestHeaders: &extproc.HeadersResponse{},
		},
	}, nil
}

func (s *GRPCCalloutService) HandleResponseHeaders(headers *extproc.HttpHeaders) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ResponseHeaders{
			ResponseHeaders: &extproc.HeadersResponse{},
		},
	}, nil
}

func (s *GRPCCalloutService) HandleRequestBody(body *extproc.HttpBody) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestBody{
			RequestBody: &extproc.BodyResponse{},
		},
	}, nil
}

func (s *GRPCCalloutService) HandleResponseBody(body *extproc.HttpBody) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ResponseBody{
			ResponseBody: &extproc.BodyResponse{},
		},
	}, nil
}

func (s *GRPCCalloutService) HandleRequestTrailers(trailers *extproc.HttpTrailers) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestTrailers{
			RequestTrailers: &extproc.TrailersResponse{},
		},
	}, nil
}

func (s *GRPCCalloutService) HandleResponseTrailers(trailers *extproc.HttpTrailers) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ResponseTrailers{
			ResponseTrailers: &extproc.TrailersResponse{},
		},
	}, nil
}

// HandleUnknownRequest answers a ProcessingRequest that carries no known
// phase with a 400 so the proxy does not wait on the stream.
func (s *GRPCCalloutService) HandleUnknownRequest(req *extproc.ProcessingRequest) (*extproc.ProcessingResponse, error) {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ImmediateResponse{
			ImmediateResponse: utils.HeaderImmediateResponse(httpstatus.StatusCode_BadRequest, nil, nil),
		},
	}, nil
}
