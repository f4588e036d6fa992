package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"cyber-shield/internal/config"
	"cyber-shield/internal/feed"
	"cyber-shield/internal/logging"
	"cyber-shield/internal/threat"
	"cyber-shield/internal/threat/types"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "threatscan: %v\n", err)
		os.Exit(1)
	}
}

// scanOutput 命令输出
type scanOutput struct {
	Results []*types.AnalysisResult `json:"results"`
	Summary *threat.Summary         `json:"summary,omitempty"`
}

// run 分析日志并以JSON写出检测结果，未指定输入时使用内置样例
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("threatscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	input := fs.String("input", "", "Log feed file (JSON array or NDJSON), - for stdin, empty for the sample feed")
	seed := fs.Uint64("seed", 0, "Seed for reproducible confidence noise (analyzes entries sequentially)")
	withSummary := fs.Bool("summary", false, "Include a summary of the detected threats")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seeded := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seeded = true
		}
	})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	entries, err := readEntries(*input, stdin)
	if err != nil {
		return err
	}

	// 日志写到stderr，stdout只输出结果
	logger := logging.NewWriterLogger(logging.ParseLevel(cfg.Logging.Level), stderr, nil)
	engineConfig := cfg.Engine.ToEngineConfig()
	options := []threat.Option{threat.WithLogger(logger)}
	if seeded {
		// 单worker保证随机数的抽取顺序与输入顺序一致
		engineConfig.Workers = 1
		options = append(options, threat.WithRandom(threat.NewSeededRandom(*seed)))
	}

	engine, err := threat.NewEngine(engineConfig, options...)
	if err != nil {
		return err
	}

	results, err := engine.AnalyzeStream(context.Background(), entries)
	if err != nil {
		return err
	}
	if results == nil {
		results = []*types.AnalysisResult{}
	}

	output := scanOutput{Results: results}
	if *withSummary {
		summary := threat.Summarize(results)
		output.Summary = &summary
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func readEntries(input string, stdin io.Reader) ([]types.LogEntry, error) {
	switch input {
	case "":
		return feed.Sample(), nil
	case "-":
		return feed.Decode(stdin)
	default:
		return feed.Load(input)
	}
}
