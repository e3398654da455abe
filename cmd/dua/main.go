// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"go/build"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awslabs/ar-go-dua/analysis"
	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/loader"
	"github.com/awslabs/ar-go-dua/analysis/report"
	"github.com/awslabs/ar-go-dua/internal/formatutil"
	"golang.org/x/tools/go/buildutil"
	"golang.org/x/tools/go/packages"
)

var (
	configPath = flag.String("config", "", "Config file path for the analysis")
	formatFlag = flag.String("format", "text", "Report format: text, json or msgpack")
	outputPath = flag.String("o", "", "Output file of the report")
	pathsFlag  = flag.Bool("paths", false, "Compute the path expressions of the DUAs")
	platform   = flag.String("platform", "", "GOOS to load the packages for")
	verbose    = flag.Bool("verbose", false, "Verbose printing on standard output")
)

func init() {
	flag.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "tags", buildutil.TagsFlagDoc)
}

const usage = `Compute the definition-use associations of your packages.
Usage:
    dua [options] <package path(s)>
Examples:
% dua -config config.yaml package...
% dua -format json -o duas.json ./...
`

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dua: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	cfg := config.NewDefault()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("could not load config %s: %w", *configPath, err)
		}
	}
	if *verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if *pathsFlag {
		cfg.PathExpressions = true
	}
	logger := config.NewLogGroup(cfg)
	for _, w := range cfg.Warnings() {
		logger.Warnf("%s: %s\n", *configPath, w)
	}

	logger.Infof(formatutil.Faint("Reading sources") + "\n")
	pkgConfig := &packages.Config{
		Mode:       analysis.PkgLoadMode,
		Tests:      false,
		BuildFlags: []string{"-tags=" + strings.Join(build.Default.BuildTags, ",")},
	}
	loaded, err := analysis.LoadProgram(pkgConfig, *platform, flag.Args())
	if err != nil {
		return fmt.Errorf("could not load program: %w", err)
	}

	start := time.Now()
	prog, err := loader.FromPackages(loaded.Packages, cfg, logger, loaded.Directives.Ignored)
	if err != nil {
		return fmt.Errorf("could not build the program model: %w", err)
	}
	logger.Infof("Program model built in %3.4f s\n", time.Since(start).Seconds())

	start = time.Now()
	res, err := analysis.Analyze(prog, nil, cfg, logger)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	logger.Infof("Analysis took %3.4f s\n", time.Since(start).Seconds())

	w, closeOutput, err := output(cfg, format)
	if err != nil {
		return err
	}
	if err := report.Write(w, report.New(res), format); err != nil {
		_ = closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("could not write report file: %w", err)
	}
	return nil
}

// output returns the writer of the report: the -o file, a file in the reports directory, or the standard output.
// Colors are only printed on the standard output.
func output(cfg *config.Config, format report.Format) (io.Writer, func() error, error) {
	path := *outputPath
	if path == "" && cfg.ReportsDir != "" {
		if err := cfg.CreateReportsDir(); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(cfg.ReportsDir, "duas"+format.Extension())
	}
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	formatutil.SetColors(false)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create report file: %w", err)
	}
	return f, f.Close, nil
}
