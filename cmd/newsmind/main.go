// Copyright 2025 Kadir Pekel
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

// Command newsmind serves and runs the NewsMind article pipeline.
//
// Usage:
//
//	newsmind serve --port 8000
//	newsmind serve --pipeline pipeline.yaml --watch
//	newsmind generate "central bank interest rates"
//	newsmind validate
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/newsmind"
	"github.com/kadirpekel/newsmind/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API."`
	Generate GenerateCmd `cmd:"" help:"Generate one article and print it."`
	Validate ValidateCmd `cmd:"" help:"Validate the environment and the pipeline file."`

	Pipeline  string `short:"p" help:"Pipeline file overriding agent prompts and models." type:"path" env:"PIPELINE_FILE"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL"`
	LogFile   string `help:"Log file path (empty = stderr)." env:"LOG_FILE"`
	LogFormat string `help:"Log format (simple, verbose)." env:"LOG_FORMAT"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(newsmind.GetVersion())
	return nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Parse errors exit here, before any resource is opened.
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("newsmind"),
		kong.Description("NewsMind - turn a news query into a structured article"),
		kong.UsageOnError(),
	)

	if err := run(ctx, &cli); err != nil {
		fmt.Fprintf(os.Stderr, "newsmind: error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the selected command. It returns instead of exiting so the
// log file and the command's own deferred shutdowns complete first.
func run(ctx *kong.Context, cli *CLI) error {
	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	return ctx.Run(cli)
}
