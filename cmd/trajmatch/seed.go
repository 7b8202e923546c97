package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/trajmatch/internal/service"
	"github.com/orneryd/trajmatch/pkg/span"
)

func runSeed(cmd *cobra.Command, args []string) error {
	path := args[0]
	asYAML, _ := cmd.Flags().GetBool("yaml")
	rebuild, _ := cmd.Flags().GetBool("rebuild-clusters")

	spans, err := loadSpans(path, asYAML)
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd)
	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, s := range spans {
		if err := svc.AddSpan(s); err != nil {
			return fmt.Errorf("seed: add span %s: %w", s.ID, err)
		}
	}

	if rebuild {
		svc.RebuildClusters()
	}

	fmt.Printf("seeded %d spans from %s\n", len(spans), path)
	return nil
}

// loadSpans parses path as either newline-delimited JSON (one Span
// object per line) or a YAML list of Spans.
func loadSpans(path string, asYAML bool) ([]span.Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}

	if asYAML {
		var spans []span.Span
		if err := yaml.Unmarshal(data, &spans); err != nil {
			return nil, fmt.Errorf("seed: parse YAML %s: %w", path, err)
		}
		return spans, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()

	var spans []span.Span
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s span.Span
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("seed: parse line: %w", err)
		}
		spans = append(spans, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("seed: scan %s: %w", path, err)
	}
	return spans, nil
}
