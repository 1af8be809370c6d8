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
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the listener and TLS settings of a callout server.
type Config struct {
	Address              string `env:"CALLOUT_ADDRESS" envDefault:"0.0.0.0:8443"`
	InsecureAddress      string `env:"CALLOUT_INSECURE_ADDRESS" envDefault:"0.0.0.0:8181"`
	HealthCheckAddress   string `env:"CALLOUT_HEALTH_CHECK_ADDRESS" envDefault:"0.0.0.0:8000"`
	CertFile             string `env:"CALLOUT_CERT_FILE"`
	KeyFile              string `env:"CALLOUT_KEY_FILE"`
	EnableTLS            bool   `env:"CALLOUT_ENABLE_TLS" envDefault:"false"`
	EnableInsecureServer bool   `env:"CALLOUT_ENABLE_INSECURE_SERVER" envDefault:"true"`
	LogLevel             string `env:"CALLOUT_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads Config from the environment, falling back to defaults.
func LoadConfig() (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return config, nil
}
