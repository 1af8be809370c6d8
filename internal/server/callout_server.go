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
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
)

// CalloutServer runs ext_proc gRPC listeners and an HTTP health check.
type CalloutServer struct {
	Config Config
	Cert   tls.Certificate

	logger *log.Logger

	mu      sync.Mutex
	stopped bool
	grpcs   []*grpc.Server
	health  *http.Server
}

// NewCalloutServer creates a CalloutServer, loading the key pair when TLS is enabled.
func NewCalloutServer(config Config) (*CalloutServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "callout",
	})
	if config.LogLevel != "" {
		level, err := log.ParseLevel(config.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
		}
		logger.SetLevel(level)
	}

	s := &CalloutServer{
		Config: config,
		logger: logger,
	}

	if config.EnableTLS {
		if config.CertFile == "" || config.KeyFile == "" {
			return nil, errors.New("TLS enabled but cert or key file not set")
		}
		cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load server certificate: %w", err)
		}
		s.Cert = cert
	}
	return s, nil
}

// Logger returns the server's logger.
func (s *CalloutServer) Logger() *log.Logger {
	return s.logger
}

// StartGRPC serves the ext_proc service over TLS on Config.Address.
// It returns immediately when TLS is disabled.
func (s *CalloutServer) StartGRPC(service extproc.ExternalProcessorServer) error {
	if !s.Config.EnableTLS {
		s.logger.Debug("TLS gRPC server disabled")
		return nil
	}
	creds := credentials.NewServerTLSFromCert(&s.Cert)
	return s.serveGRPC(s.Config.Address, service, grpc.Creds(creds))
}

// StartInsecureGRPC serves the ext_proc service without TLS on Config.InsecureAddress.
// It returns immediately when the insecure server is disabled.
func (s *CalloutServer) StartInsecureGRPC(service extproc.ExternalProcessorServer) error {
	if !s.Config.EnableInsecureServer {
		s.logger.Debug("insecure gRPC server disabled")
		return nil
	}
	return s.serveGRPC(s.Config.InsecureAddress, service)
}

func (s *CalloutServer) serveGRPC(address string, service extproc.ExternalProcessorServer, opts ...grpc.ServerOption) error {
	grpcServer := grpc.NewServer(opts...)
	extproc.RegisterExternalProcessorServer(grpcServer, service)
	reflection.Register(grpcServer)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.grpcs = append(s.grpcs, grpcServer)
	s.mu.Unlock()

	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}
	s.logger.Info("gRPC server listening", "address", lis.Addr().String())
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC on %s: %w", address, err)
	}
	return nil
}

// StartHealthCheck answers 200 on every path of Config.HealthCheckAddress.
func (s *CalloutServer) StartHealthCheck() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{
		Addr:    s.Config.HealthCheckAddress,
		Handler: mux,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.health = server
	s.mu.Unlock()

	s.logger.Info("health check listening", "address", s.Config.HealthCheckAddress)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve health check: %w", err)
	}
	return nil
}

// Stop gracefully stops every listener started so far. Start methods
// called after Stop return nil without serving.
func (s *CalloutServer) Stop() {
	s.mu.Lock()
	s.stopped = true
	grpcs := s.grpcs
	health := s.health
	s.grpcs = nil
	s.health = nil
	s.mu.Unlock()

	for _, g := range grpcs {
		g.GracefulStop()
	}
	if health != nil {
		if err := health.Close(); err != nil {
			s.logger.Warn("closing health check", "err", err)
		}
	}
	s.logger.Info("callout server stopped")
}
