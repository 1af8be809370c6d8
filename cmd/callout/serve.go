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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wasm-custom/response-header/callout"
	"github.com/wasm-custom/response-header/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the callout gRPC servers and the health check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := server.LoadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config)
		},
	}
}

// serve runs every configured listener until ctx is done or one of them fails.
func serve(ctx context.Context, config server.Config) error {
	calloutServer, err := server.NewCalloutServer(config)
	if err != nil {
		return err
	}
	service := callout.NewCalloutService()
	logger := calloutServer.Logger()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return calloutServer.StartGRPC(service) })
	g.Go(func() error { return calloutServer.StartInsecureGRPC(service) })
	g.Go(calloutServer.StartHealthCheck)
	g.Go(func() error {
		<-ctx.Done()
		calloutServer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("callout server failed", "err", err)
		return err
	}
	return nil
}
