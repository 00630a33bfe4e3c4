package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/ezoic/gamcf/coach"
	"github.com/ezoic/gamcf/ebm"
)

func newServeCmd() *cobra.Command {
	var (
		modelPath string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve counterfactual generation over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := ebm.LoadFromFile(modelPath)
			if err != nil {
				return err
			}
			c, err := coach.NewCoach(model, newSolverClient())
			if err != nil {
				return err
			}

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Recover())
			h := &cfHandler{coach: c}
			e.POST("/v1/counterfactuals", h.generate)
			e.GET("/healthz", func(ctx echo.Context) error {
				return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
			})
			return e.Start(addr)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "model description JSON file")
	cmd.Flags().StringVar(&addr, "addr", ":8172", "listen address")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

type cfHandler struct {
	coach *coach.Coach
}

type generateRequest struct {
	Sample            ebm.Sample                    `json:"sample"`
	TotalCfs          int                           `json:"totalCfs"`
	TargetRange       []float64                     `json:"targetRange,omitempty"`
	FeaturesToVary    []string                      `json:"featuresToVary,omitempty"`
	MaxFeaturesToVary int                           `json:"maxFeaturesToVary,omitempty"`
	FeatureRanges     map[string]coach.FeatureRange `json:"featureRanges,omitempty"`
	FeatureWeights    map[string]float64            `json:"featureWeights,omitempty"`
	IntegerFeatures   []string                      `json:"integerFeatures,omitempty"`
}

func (h *cfHandler) generate(ctx echo.Context) error {
	var req generateRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Sample) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sample is required")
	}

	result, err := h.coach.GenerateCfs(ctx.Request().Context(), coach.Config{
		Sample:            req.Sample,
		TotalCfs:          req.TotalCfs,
		TargetRange:       req.TargetRange,
		FeaturesToVary:    req.FeaturesToVary,
		MaxFeaturesToVary: req.MaxFeaturesToVary,
		FeatureRanges:     req.FeatureRanges,
		FeatureWeights:    req.FeatureWeights,
		IntegerFeatures:   req.IntegerFeatures,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return ctx.JSON(http.StatusOK, toResponse(result))
}
