package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/models"
	"go-apartment-scout/internal/pipeline"
)

type output struct {
	Parsed       models.ParsedListing `json:"parsed"`
	Result       models.FilterResult  `json:"result"`
	ShouldNotify bool                 `json:"should_notify"`
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	file := flag.String("file", "", "read the listing from a file instead of the arguments or stdin")
	noAI := flag.Bool("no-ai", false, "disable the model fallback")
	flag.Parse()

	text, err := readText(*file, flag.Args(), os.Stdin)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *noAI {
		cfg.Parsing.UseAIFallback = false
	}

	p, err := pipeline.NewParser(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to build parser: %v", err)
	}

	parsed := p.Parse(context.Background(), text)
	result := filter.MatchesCriteria(parsed, cfg.FilterCriteria())
	out := output{
		Parsed:       parsed,
		Result:       result,
		ShouldNotify: filter.ShouldNotify(parsed, result, cfg.Notify.PartialMinScore),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("❌ Failed to write output: %v", err)
	}
}

func readText(file string, args []string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		text = string(data)
	case len(args) > 0:
		text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no listing text given")
	}
	return text, nil
}
