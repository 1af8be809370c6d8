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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

const defaultProbeData = `[{"response_headers": {"headers": {"headers": [{"key": "x-wasm-custom", "raw_value": "QkFS"}]}}}]`

type probeOptions struct {
	addr     string
	useTLS   bool
	certFile string
	data     string
	timeout  time.Duration
}

func newProbeCmd() *cobra.Command {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send ProcessingRequests to a running callout and print the responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := makeChannel(opts.addr, opts.useTLS, opts.certFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := conn.Close(); err != nil {
					log.Warn("closing connection", "err", err)
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			responses, err := makeJSONRequest(ctx, conn, opts.data)
			if err != nil {
				return err
			}
			for _, resp := range responses {
				respJSON, err := protojson.Marshal(resp)
				if err != nil {
					return fmt.Errorf("marshal response: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(respJSON))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "localhost:8181", "The server address in the format of host:port")
	flags.BoolVar(&opts.useTLS, "tls", false, "Connection uses TLS if true, else plain TCP")
	flags.StringVar(&opts.certFile, "cert_file", "", "The file containing the CA root cert file")
	flags.StringVar(&opts.data, "data", defaultProbeData, "JSON array of ProcessingRequest messages")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Deadline for the whole exchange")
	return cmd
}

// makeChannel creates a gRPC client connection to the given address.
func makeChannel(addr string, useTLS bool, certFile string) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if useTLS {
		var err error
		creds, err = credentials.NewClientTLSFromFile(certFile, "")
		if err != nil {
			return nil, fmt.Errorf("load CA cert: %w", err)
		}
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// parseRequests decodes a JSON array into ProcessingRequests, one protojson message per element.
func parseRequests(jsonData string) ([]*extproc.ProcessingRequest, error) {
	var rawRequests []json.RawMessage
	if err := json.Unmarshal([]byte(jsonData), &rawRequests); err != nil {
		return nil, fmt.Errorf("decode request array: %w", err)
	}
	if len(rawRequests) == 0 {
		return nil, errors.New("no requests to send")
	}

	requests := make([]*extproc.ProcessingRequest, 0, len(rawRequests))
	for i, raw := range rawRequests {
		req := &extproc.ProcessingRequest{}
		if err := protojson.Unmarshal(raw, req); err != nil {
			return nil, fmt.Errorf("decode request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// makeJSONRequest sends the requests in jsonData on one stream and collects every response.
func makeJSONRequest(ctx context.Context, conn grpc.ClientConnInterface, jsonData string) ([]*extproc.ProcessingResponse, error) {
	requests, err := parseRequests(jsonData)
	if err != nil {
		return nil, err
	}

	stream, err := extproc.NewExternalProcessorClient(conn).Process(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	for _, req := range requests {
		if err := stream.Send(req); err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		log.Debug("sent request", "request", req)
	}

	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close send: %w", err)
	}

	var responses []*extproc.ProcessingResponse
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receive response: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
