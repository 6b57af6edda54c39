package main

import (
	"encoding/json"
	"flag"
	"math"
	"os"
	"strconv"

	metisapi "metis/pkg/metis"
)

// loadRunRequestFromConfig reads a JSON run config. Missing keys keep
// the library defaults.
func loadRunRequestFromConfig(path string) (metisapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metisapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return metisapi.RunRequest{}, err
	}

	req := metisapi.NewRunRequest()
	if v, ok := asString(raw["scenario"]); ok {
		req.Scenario = v
	}
	if v, ok := asString(raw["measure"]); ok {
		req.Measure = v
	}
	if v, ok := asInt(raw["episodes"]); ok {
		req.Episodes = v
	}
	if v, ok := asInt(raw["state_size"]); ok {
		req.StateSize = v
	}
	if v, ok := asInt(raw["action_size"]); ok {
		req.ActionSize = v
	}
	if v, ok := asInt(raw["ensemble_size"]); ok {
		req.EnsembleSize = v
	}
	if v, ok := asInt(raw["plan_horizon"]); ok {
		req.PlanHorizon = v
	}
	if v, ok := asInt(raw["optimisation_iters"]); ok {
		req.OptimisationIters = v
	}
	if v, ok := asInt(raw["n_candidates"]); ok {
		req.NCandidates = v
	}
	if v, ok := asInt(raw["top_candidates"]); ok {
		req.TopCandidates = v
	}
	if v, ok := asBool(raw["use_reward"]); ok {
		req.UseReward = v
	}
	if v, ok := asBool(raw["use_exploration"]); ok {
		req.UseExploration = v
	}
	if v, ok := asFloat64(raw["expl_scale"]); ok {
		req.ExplScale = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	return req, nil
}

// applyFlagOverrides lets explicitly set flags win over config-file
// values.
func applyFlagOverrides(req metisapi.RunRequest, fs *flag.FlagSet) metisapi.RunRequest {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scenario":
			req.Scenario = f.Value.String()
		case "measure":
			req.Measure = f.Value.String()
		case "episodes":
			req.Episodes = mustAtoi(f.Value.String())
		case "state-size":
			req.StateSize = mustAtoi(f.Value.String())
		case "action-size":
			req.ActionSize = mustAtoi(f.Value.String())
		case "ensemble-size":
			req.EnsembleSize = mustAtoi(f.Value.String())
		case "plan-horizon":
			req.PlanHorizon = mustAtoi(f.Value.String())
		case "optimisation-iters":
			req.OptimisationIters = mustAtoi(f.Value.String())
		case "candidates":
			req.NCandidates = mustAtoi(f.Value.String())
		case "top-candidates":
			req.TopCandidates = mustAtoi(f.Value.String())
		case "use-reward":
			req.UseReward = f.Value.String() == "true"
		case "use-exploration":
			req.UseExploration = f.Value.String() == "true"
		case "expl-scale":
			req.ExplScale = mustParseFloat(f.Value.String())
		case "seed":
			req.Seed = int64(mustAtoi(f.Value.String()))
		}
	})
	return req
}

func mustAtoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func mustParseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
