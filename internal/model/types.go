package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NetworkParams is the serialized form of one policy or value network.
type NetworkParams struct {
	Sizes   []int         `json:"sizes"`
	Weights [][][]float64 `json:"weights"`
	Biases  [][]float64   `json:"biases"`
}

// Checkpoint is the durable training state: the learnable parameters plus
// enough metadata to resume a run where it stopped.
type Checkpoint struct {
	VersionedRecord
	RunID           string         `json:"run_id"`
	Stage           int            `json:"stage"`
	Episode         int            `json:"episode"`
	CurriculumIndex int            `json:"curriculum_index"`
	Policy          NetworkParams  `json:"policy"`
	Value           *NetworkParams `json:"value,omitempty"`
	Baseline        float64        `json:"baseline"`
}

// DiscoveryRecord is one deduplicated entry of the discovery log: a
// candidate program with the best reward it ever achieved.
type DiscoveryRecord struct {
	VersionedRecord
	Sequence string  `json:"sequence"`
	Reward   float64 `json:"reward"`
	Correct  bool    `json:"correct"`
	Episode  int     `json:"episode"`
}

// RunSummary aggregates one training run for reporting.
type RunSummary struct {
	VersionedRecord
	RunID        string  `json:"run_id"`
	Stage        int     `json:"stage"`
	Episodes     int     `json:"episodes"`
	BestReward   float64 `json:"best_reward"`
	BestSequence string  `json:"best_sequence"`
	FinalStage   int     `json:"final_curriculum_index"`
	Solved       bool    `json:"solved"`
}
