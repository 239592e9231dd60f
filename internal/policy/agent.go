package policy

import (
	"errors"
	"math"
	"math/rand"

	"sortforge/internal/isa"
	"sortforge/internal/model"
)

// Config holds the agent hyperparameters. Defaults() gives the reference
// values; everything is overridable from configuration.
type Config struct {
	LearningRate float64
	Discount     float64
	GradClip     float64
	EntropyBonus float64

	EpsilonStart float64
	EpsilonDecay float64
	EpsilonMin   float64

	// BaselineDecay is the EMA coefficient of the REINFORCE running
	// baseline (variance reduction only, not correctness).
	BaselineDecay float64

	HiddenSizes []int
	Dropout     float64

	// IncludeNop admits the timing hint into the sampling vocabulary.
	IncludeNop bool

	// PriorWeight is the pattern-prior mixing coefficient lambda.
	PriorWeight float64
}

func Defaults() Config {
	return Config{
		LearningRate:  0.01,
		Discount:      0.97,
		GradClip:      5.0,
		EntropyBonus:  0.01,
		EpsilonStart:  0.3,
		EpsilonDecay:  0.995,
		EpsilonMin:    0.02,
		BaselineDecay: 0.9,
		HiddenSizes:   []int{32},
		Dropout:       0,
		PriorWeight:   0.25,
	}
}

// Agent owns the action-distribution network and, when trained
// actor-critic, the value estimator. All randomness flows through the
// injected source.
type Agent struct {
	cfg   Config
	rng   *rand.Rand
	vocab []isa.Instruction

	policy *MLP
	value  *MLP

	baseline    float64
	baselineSet bool
	prior       *Prior
}

// Step is one trajectory entry: the encoded observation, the index of the
// sampled action, its log-probability under the model, and the value
// estimate when a critic is present.
type Step struct {
	Features []float64
	Action   int
	LogProb  float64
	Value    float64
}

// Sample is the outcome of one action selection.
type Sample struct {
	Instruction isa.Instruction
	Step        Step
}

// NewAgent builds a fresh agent. withCritic adds the value network used by
// the actor-critic update.
func NewAgent(cfg Config, rng *rand.Rand, withCritic bool) (*Agent, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if cfg.LearningRate <= 0 {
		return nil, errors.New("learning rate must be > 0")
	}
	vocab := isa.Vocabulary(cfg.IncludeNop)

	sizes := append([]int{FeatureDim}, cfg.HiddenSizes...)
	policyNet, err := NewMLP(rng, append(sizes, len(vocab)))
	if err != nil {
		return nil, err
	}
	a := &Agent{cfg: cfg, rng: rng, vocab: vocab, policy: policyNet}
	if withCritic {
		valueNet, err := NewMLP(rng, append(append([]int{FeatureDim}, cfg.HiddenSizes...), 1))
		if err != nil {
			return nil, err
		}
		a.value = valueNet
	}
	return a, nil
}

func (a *Agent) Vocabulary() []isa.Instruction {
	return a.vocab
}

// SetPrior installs (or clears) the pattern-guided exploration prior.
func (a *Agent) SetPrior(p *Prior) {
	a.prior = p
}

// Epsilon reports the exploration rate in effect for an episode.
func (a *Agent) Epsilon(episode int) float64 {
	return EpsilonAt(episode, a.cfg.EpsilonStart, a.cfg.EpsilonDecay, a.cfg.EpsilonMin)
}

// SelectAction samples one instruction for the given observation. The
// model distribution is mixed with the pattern prior (one fixed weighted
// average), then an epsilon-greedy override may substitute a uniform
// random action. The recorded log-probability is the model's own, which
// is what both update rules differentiate.
func (a *Agent) SelectAction(in StateInput, episode int) Sample {
	if a.prior != nil && in.Pattern == nil {
		in.Pattern = a.prior.Row(in.Step)
	}
	features := Features(in)

	logits, _ := a.policy.Forward(features, 0, nil)
	probs := Softmax(logits)
	sampling := probs
	if a.prior != nil {
		sampling = a.prior.Mix(in.Step, probs)
	}

	var idx int
	if a.rng.Float64() < a.Epsilon(episode) {
		idx = a.rng.Intn(len(a.vocab))
	} else {
		idx = sampleCategorical(a.rng, sampling)
	}

	value := 0.0
	if a.value != nil {
		out, _ := a.value.Forward(features, 0, nil)
		value = out[0]
	}

	return Sample{
		Instruction: a.vocab[idx],
		Step: Step{
			Features: features,
			Action:   idx,
			LogProb:  math.Log(probs[idx] + 1e-12),
			Value:    value,
		},
	}
}

// UpdateREINFORCE applies the Monte-Carlo policy gradient for one episode:
// every sampled action's log-probability is pushed up in proportion to
// (reward - runningBaseline). The baseline EMA updates afterwards.
func (a *Agent) UpdateREINFORCE(steps []Step, reward float64) {
	if len(steps) == 0 {
		return
	}
	baseline := a.baseline
	if !a.baselineSet {
		baseline = reward
	}
	advantage := reward - baseline

	grads := NewGrads(a.policy)
	for _, step := range steps {
		logits, cache := a.policy.Forward(step.Features, a.cfg.Dropout, a.rng)
		probs := Softmax(logits)
		dLogits := make([]float64, len(probs))
		for i := range dLogits {
			indicator := 0.0
			if i == step.Action {
				indicator = 1.0
			}
			dLogits[i] = advantage * (indicator - probs[i])
		}
		a.policy.Backward(cache, dLogits, grads)
	}
	grads.ClipGlobalNorm(a.cfg.GradClip)
	a.policy.Apply(grads, a.cfg.LearningRate)

	decay := a.cfg.BaselineDecay
	if decay <= 0 || decay >= 1 {
		decay = 0.9
	}
	if !a.baselineSet {
		a.baseline = reward
		a.baselineSet = true
	} else {
		a.baseline = decay*a.baseline + (1-decay)*reward
	}
}

// UpdateActorCritic applies the advantage-weighted policy gradient with an
// entropy bonus, and fits the value estimator to the observed returns by
// squared error. Both gradients are clipped by global norm, which keeps
// occasional latency-reward spikes from destabilizing the run.
func (a *Agent) UpdateActorCritic(steps []Step, finalReward float64) {
	if len(steps) == 0 || a.value == nil {
		return
	}

	// Terminal-only reward: discounted return at step t is
	// discount^(T-1-t) * finalReward.
	discount := a.cfg.Discount
	if discount <= 0 || discount > 1 {
		discount = 1
	}
	returns := make([]float64, len(steps))
	g := finalReward
	for t := len(steps) - 1; t >= 0; t-- {
		returns[t] = g
		g *= discount
	}

	policyGrads := NewGrads(a.policy)
	valueGrads := NewGrads(a.value)
	for t, step := range steps {
		vOut, vCache := a.value.Forward(step.Features, a.cfg.Dropout, a.rng)
		advantage := returns[t] - vOut[0]

		logits, cache := a.policy.Forward(step.Features, a.cfg.Dropout, a.rng)
		probs := Softmax(logits)
		entropy := 0.0
		for _, p := range probs {
			if p > 0 {
				entropy -= p * math.Log(p)
			}
		}

		dLogits := make([]float64, len(probs))
		for i, p := range probs {
			indicator := 0.0
			if i == step.Action {
				indicator = 1.0
			}
			grad := advantage * (indicator - p)
			if p > 0 {
				grad += a.cfg.EntropyBonus * (-p * (math.Log(p) + entropy))
			}
			dLogits[i] = grad
		}
		a.policy.Backward(cache, dLogits, policyGrads)

		// d/dv of 0.5*(v - G)^2, descended below.
		a.value.Backward(vCache, []float64{vOut[0] - returns[t]}, valueGrads)
	}

	policyGrads.ClipGlobalNorm(a.cfg.GradClip)
	valueGrads.ClipGlobalNorm(a.cfg.GradClip)
	a.policy.Apply(policyGrads, a.cfg.LearningRate)
	a.value.Apply(valueGrads, -a.cfg.LearningRate)
}

// Baseline exposes the REINFORCE running baseline for checkpoints.
func (a *Agent) Baseline() float64 {
	return a.baseline
}

// Snapshot captures the learnable state for persistence.
func (a *Agent) Snapshot() (model.NetworkParams, *model.NetworkParams, float64) {
	policyParams := a.policy.ToParams()
	var valueParams *model.NetworkParams
	if a.value != nil {
		p := a.value.ToParams()
		valueParams = &p
	}
	return policyParams, valueParams, a.baseline
}

// Restore replaces the learnable state from a checkpoint snapshot.
func (a *Agent) Restore(policyParams model.NetworkParams, valueParams *model.NetworkParams, baseline float64) error {
	policyNet, err := FromParams(policyParams)
	if err != nil {
		return err
	}
	if len(policyNet.Sizes) > 0 && policyNet.Sizes[len(policyNet.Sizes)-1] != len(a.vocab) {
		return errors.New("checkpoint action width does not match vocabulary")
	}
	var valueNet *MLP
	if valueParams != nil {
		valueNet, err = FromParams(*valueParams)
		if err != nil {
			return err
		}
	}
	a.policy = policyNet
	if valueNet != nil {
		a.value = valueNet
	}
	a.baseline = baseline
	a.baselineSet = true
	return nil
}

func sampleCategorical(rng *rand.Rand, probs []float64) int {
	r := rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if r < acc {
			return i
		}
	}
	return len(probs) - 1
}
