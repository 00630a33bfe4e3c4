package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezoic/gamcf/coach"
	"github.com/ezoic/gamcf/ebm"
)

func newGenerateCmd() *cobra.Command {
	var (
		modelPath   string
		samplePath  string
		totalCfs    int
		targetRange []float64
		vary        []string
		maxVary     int
		integers    []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate counterfactual proposals for one sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := ebm.LoadFromFile(modelPath)
			if err != nil {
				return err
			}
			sample, err := readSample(samplePath)
			if err != nil {
				return err
			}
			c, err := coach.NewCoach(model, newSolverClient())
			if err != nil {
				return err
			}
			result, err := c.GenerateCfs(cmd.Context(), coach.Config{
				Sample:            sample,
				TotalCfs:          totalCfs,
				TargetRange:       targetRange,
				FeaturesToVary:    vary,
				MaxFeaturesToVary: maxVary,
				IntegerFeatures:   integers,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(toResponse(result))
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "model description JSON file")
	cmd.Flags().StringVar(&samplePath, "sample", "", "sample JSON file (array in model feature order)")
	cmd.Flags().IntVar(&totalCfs, "total", 1, "number of diverse proposals")
	cmd.Flags().Float64SliceVar(&targetRange, "target-range", nil, "regression target range lo,hi")
	cmd.Flags().StringSliceVar(&vary, "vary", nil, "features allowed to vary (default all)")
	cmd.Flags().IntVar(&maxVary, "max-vary", 0, "max features changed per proposal (0 = unbounded)")
	cmd.Flags().StringSliceVar(&integers, "integer", nil, "continuous features requiring integer targets")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("sample")
	return cmd
}

func readSample(path string) (ebm.Sample, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var sample ebm.Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, err
	}
	return sample, nil
}

// generateResponse is the JSON view of a result batch; typed variable
// identifiers are rendered as their wire names.
type generateResponse struct {
	Data            []ebm.Sample              `json:"data"`
	Distances       []float64                 `json:"distances"`
	TargetRanges    [][]coach.TargetRangeInfo `json:"targetRanges"`
	ScoreGains      [][]float64               `json:"scoreGains"`
	IsSuccessful    bool                      `json:"isSuccessful"`
	ActiveVariables [][]string                `json:"activeVariables"`
}

func toResponse(r *coach.Result) generateResponse {
	active := make([][]string, len(r.ActiveVariables))
	for i, ids := range r.ActiveVariables {
		names := make([]string, len(ids))
		for j, id := range ids {
			names[j] = id.String()
		}
		active[i] = names
	}
	return generateResponse{
		Data:            r.Data,
		Distances:       r.Distances,
		TargetRanges:    r.TargetRanges,
		ScoreGains:      r.ScoreGains,
		IsSuccessful:    r.IsSuccessful,
		ActiveVariables: active,
	}
}
