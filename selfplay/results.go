package selfplay

import (
	omwjson "github.com/sw965/omw/encoding/jsonx"
)

// EvalEntry is one evaluation point of the training history.
type EvalEntry struct {
	Timesteps    int     `json:"timesteps"`
	WinRate      float32 `json:"win_rate"`
	AvgScoreDiff float32 `json:"avg_score_diff"`
}

// Results is the experiment summary written next to the checkpoints.
type Results struct {
	Experiment  string      `json:"experiment"`
	Players     int         `json:"players"`
	Strategy    string      `json:"strategy"`
	StartTime   string      `json:"start_time"`
	TotalSteps  int         `json:"total_steps"`
	BestWinRate float32     `json:"best_win_rate"`
	History     []EvalEntry `json:"history"`
	FinalEval   *EvalEntry  `json:"final_eval,omitempty"`
}

func (r *Results) Save(path string) error {
	return omwjson.Save(r, path)
}

func LoadResults(path string) (Results, error) {
	return omwjson.Load[Results](path)
}
