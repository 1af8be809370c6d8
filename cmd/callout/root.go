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
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:   "custom-header-callout",
		Short: "ext_proc callout that sets x-wasm-custom: FOO on every response.",
		Long: `custom-header-callout is the out-of-process counterpart of the
custom_header Wasm plugin. It answers Envoy ext_proc streams and overwrites
the x-wasm-custom response header with FOO.

Listeners are configured with CALLOUT_* environment variables.`,
		RunE:         serve.RunE,
		SilenceUsage: true,
	}
	root.AddCommand(serve, newProbeCmd())
	return root
}
