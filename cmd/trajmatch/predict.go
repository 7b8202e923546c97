package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orneryd/trajmatch/internal/service"
	"github.com/orneryd/trajmatch/pkg/matcher"
)

func runPredict(cmd *cobra.Command, args []string) error {
	action := args[0]
	environment, _ := cmd.Flags().GetString("environment")
	stakes, _ := cmd.Flags().GetString("stakes")
	topK, _ := cmd.Flags().GetInt("top-k")
	minQuality, _ := cmd.Flags().GetInt("min-quality")
	seedFile, _ := cmd.Flags().GetString("seed-file")

	cfg := loadConfig(cmd)
	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if seedFile != "" {
		spans, err := loadSpans(seedFile, false)
		if err != nil {
			return err
		}
		for _, s := range spans {
			if err := svc.AddSpan(s); err != nil {
				return err
			}
		}
		svc.RebuildClusters()
	}

	plan := &matcher.SearchPlan{TopK: topK, MinQuality: minQuality}
	prediction := svc.Predict(context.Background(), matcher.Context{Environment: environment, Stakes: stakes}, action, plan)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(prediction); err != nil {
		return fmt.Errorf("predict: encode result: %w", err)
	}
	return nil
}
