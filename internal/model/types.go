package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RewardStats summarizes the per-candidate rewards logged by the
// planner between drains.
type RewardStats struct {
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Std  float64 `json:"std"`
}

// EpisodeStats is one drained planning episode: the chosen first action
// plus the reward and exploration summaries behind it.
type EpisodeStats struct {
	VersionedRecord
	RunID       string             `json:"run_id"`
	Episode     int                `json:"episode"`
	Action      []float64          `json:"action"`
	Reward      RewardStats        `json:"reward"`
	Exploration map[string]float64 `json:"exploration,omitempty"`
}

// RunSummary records the configuration of one planning run.
type RunSummary struct {
	VersionedRecord
	ID                string  `json:"id"`
	Scenario          string  `json:"scenario"`
	Measure           string  `json:"measure,omitempty"`
	Episodes          int     `json:"episodes"`
	StateSize         int     `json:"state_size"`
	ActionSize        int     `json:"action_size"`
	EnsembleSize      int     `json:"ensemble_size"`
	PlanHorizon       int     `json:"plan_horizon"`
	OptimisationIters int     `json:"optimisation_iters"`
	NCandidates       int     `json:"n_candidates"`
	TopCandidates     int     `json:"top_candidates"`
	UseReward         bool    `json:"use_reward"`
	UseExploration    bool    `json:"use_exploration"`
	ExplScale         float64 `json:"expl_scale"`
	Seed              int64   `json:"seed"`
	CreatedUnix       int64   `json:"created_unix"`
}
