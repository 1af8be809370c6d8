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
	"testing"

	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	httpstatus "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/testing/protocmp"
)

// mockProcessStream is a mock of the server side of an ext_proc stream.
type mockProcessStream struct {
	grpc.ServerStream
	mock.Mock
	sent []*extproc.ProcessingResponse
}

func (m *mockProcessStream) Recv() (*extproc.ProcessingRequest, error) {
	args := m.Called()
	req, _ := args.Get(0).(*extproc.ProcessingRequest)
	return req, args.Error(1)
}

func (m *mockProcessStream) Send(resp *extproc.ProcessingResponse) error {
	m.sent = append(m.sent, resp)
	return m.Called(resp).Error(0)
}

func newMockProcessStream(reqs ...*extproc.ProcessingRequest) *mockProcessStream {
	stream := &mockProcessStream{}
	for _, req := range reqs {
		stream.On("Recv").Return(req, nil).Once()
	}
	stream.On("Recv").Return(nil, io.EOF).Once()
	stream.On("Send", mock.Anything).Return(nil)
	return stream
}

func TestProcessDefaultsToPassThrough(t *testing.T) {
	stream := newMockProcessStream(
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_RequestHeaders{RequestHeaders: &extproc.HttpHeaders{}}},
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_ResponseHeaders{ResponseHeaders: &extproc.HttpHeaders{}}},
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_RequestBody{RequestBody: &extproc.HttpBody{}}},
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_ResponseBody{ResponseBody: &extproc.HttpBody{}}},
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_RequestTrailers{RequestTrailers: &extproc.HttpTrailers{}}},
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_ResponseTrailers{ResponseTrailers: &extproc.HttpTrailers{}}},
	)

	service := &GRPCCalloutService{}
	require.NoError(t, service.Process(stream))

	want := []*extproc.ProcessingResponse{
		{Response: &extproc.ProcessingResponse_RequestHeaders{RequestHeaders: &extproc.HeadersResponse{}}},
		{Response: &extproc.ProcessingResponse_ResponseHeaders{ResponseHeaders: &extproc.HeadersResponse{}}},
		{Response: &extproc.ProcessingResponse_RequestBody{RequestBody: &extproc.BodyResponse{}}},
		{Response: &extproc.ProcessingResponse_ResponseBody{ResponseBody: &extproc.BodyResponse{}}},
		{Response: &extproc.ProcessingResponse_RequestTrailers{RequestTrailers: &extproc.TrailersResponse{}}},
		{Response: &extproc.ProcessingResponse_ResponseTrailers{ResponseTrailers: &extproc.TrailersResponse{}}},
	}
	if diff := cmp.Diff(want, stream.sent, protocmp.Transform()); diff != "" {
		t.Errorf("Process() sent mismatch (-want +got):\n%s", diff)
	}
	stream.AssertExpectations(t)
}

func TestProcessUsesRegisteredHandler(t *testing.T) {
	immediate := &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ImmediateResponse{ImmediateResponse: &extproc.ImmediateResponse{}},
	}
	service := &GRPCCalloutService{}
	service.Handlers.ResponseHeadersHandler = func(*extproc.HttpHeaders) (*extproc.ProcessingResponse, error) {
		return immediate, nil
	}

	stream := newMockProcessStream(
		&extproc.ProcessingRequest{Request: &extproc.ProcessingRequest_ResponseHeaders{ResponseHeaders: &extproc.HttpHeaders{}}},
	)
	require.NoError(t, service.Process(stream))

	require.Len(t, stream.sent, 1)
	assert.Same(t, immediate, stream.sent[0])
}

func TestProcessHandlerError(t *testing.T) {
	wantErr := errors.New("handler failed")
	service := &GRPCCalloutService{}
	service.Handlers.RequestBodyHandler = func(*extproc.HttpBody) (*extproc.ProcessingResponse, error) {
		return nil, wantErr
	}

	stream := &mockProcessStream{}
	stream.On("Recv").Return(&extproc.ProcessingRequest{
		Request: &extproc.ProcessingRequest_RequestBody{RequestBody: &extproc.HttpBody{}},
	}, nil).Once()

	assert.ErrorIs(t, service.Process(stream), wantErr)
	assert.Empty(t, stream.sent)
}

func TestProcessRecvError(t *testing.T) {
	wantErr := errors.New("connection reset")
	stream := &mockProcessStream{}
	stream.On("Recv").Return(nil, wantErr).Once()

	assert.ErrorIs(t, (&GRPCCalloutService{}).Process(stream), wantErr)
}

func TestProcessSendError(t *testing.T) {
	wantErr := errors.New("stream closed")
	stream := &mockProcessStream{}
	stream.On("Recv").Return(&extproc.ProcessingRequest{
		Request: &extproc.ProcessingRequest_ResponseHeaders{ResponseHeaders: &extproc.HttpHeaders{}},
	}, nil).Once()
	stream.On("Send", mock.Anything).Return(wantErr)

	assert.ErrorIs(t, (&GRPCCalloutService{}).Process(stream), wantErr)
}

func TestProcessUnknownRequestGetsImmediateResponse(t *testing.T) {
	stream := newMockProcessStream(&extproc.ProcessingRequest{})

	require.NoError(t, (&GRPCCalloutService{}).Process(stream))

	want := []*extproc.ProcessingResponse{
		{
			Response: &extproc.ProcessingResponse_ImmediateResponse{
				ImmediateResponse: &extproc.ImmediateResponse{
					Status: &httpstatus.HttpStatus{Code: httpstatus.StatusCode_BadRequest},
				},
			},
		},
	}
	if diff := cmp.Diff(want, stream.sent, protocmp.Transform()); diff != "" {
		t.Errorf("Process() sent mismatch (-want +got):\n%s", diff)
	}
	stream.AssertExpectations(t)
}
