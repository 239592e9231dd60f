package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sortforge/internal/config"
	"sortforge/internal/curriculum"
	"sortforge/internal/isa"
	"sortforge/internal/latency"
	"sortforge/internal/model"
	"sortforge/internal/policy"
	"sortforge/internal/reward"
	"sortforge/internal/storage"
)

// Stage selects which curriculum of the search runs: syntax validity,
// functional correctness, or measured-latency optimization.
type Stage int

const (
	StageSyntax      Stage = 1
	StageCorrectness Stage = 2
	StageLatency     Stage = 3
)

func (s Stage) Valid() bool {
	return s >= StageSyntax && s <= StageLatency
}

// Trainer drives episodes sequentially: sample a program, execute and
// score it, update the agent, advance the curriculum, and log discoveries.
// All mutable training state is owned here and mutated between episodes
// only, so cancellation between episodes never corrupts a run.
type Trainer struct {
	cfg   config.Config
	stage Stage
	runID string

	agent       *policy.Agent
	scheduler   *curriculum.Scheduler
	profiler    *latency.Profiler
	rewardCfg   reward.Config
	store       storage.Store
	log         *zap.Logger
	discoveries *DiscoveryLog

	episode int
	rewards []float64
}

// Result summarizes a finished (or cleanly cancelled) run.
type Result struct {
	RunID           string
	Stage           Stage
	Episodes        int
	BestReward      float64
	BestProgram     isa.Program
	BestCorrect     bool
	CurriculumIndex int
	Rewards         []float64
}

// New wires a trainer for one stage. A nil logger is replaced by a no-op
// one; the store may be nil for purely in-memory experiments.
func New(cfg config.Config, stage Stage, store storage.Store, logger *zap.Logger) (*Trainer, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown training stage %d", stage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	agentCfg := policy.Config{
		LearningRate:  cfg.LearningRate,
		Discount:      cfg.Discount,
		GradClip:      cfg.GradClip,
		EntropyBonus:  cfg.EntropyBonus,
		EpsilonStart:  cfg.EpsilonStart,
		EpsilonDecay:  cfg.EpsilonDecay,
		EpsilonMin:    cfg.EpsilonMin,
		BaselineDecay: 0.9,
		HiddenSizes:   cfg.HiddenSizes,
		Dropout:       cfg.Dropout,
		IncludeNop:    cfg.EnableNop || stage == StageLatency,
		PriorWeight:   cfg.PriorWeight,
	}
	agent, err := policy.NewAgent(agentCfg, rng, stage == StageLatency)
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:         cfg,
		stage:       stage,
		runID:       uuid.NewString(),
		agent:       agent,
		store:       store,
		log:         logger,
		discoveries: NewDiscoveryLog(),
		rewardCfg: reward.Config{
			WeightCorrectness: cfg.WeightCorrectness,
			WeightLatencyMax:  cfg.WeightLatencyMax,
			WeightLengthMax:   cfg.WeightLengthMax,
			TruncationPenalty: cfg.TruncationPenalty,
			InvalidPenalty:    cfg.InvalidPenalty,
			MaxProgramLength:  cfg.MaxProgramLength,
		},
	}

	if stage != StageSyntax {
		t.scheduler, err = curriculum.NewScheduler(curriculum.DefaultLadder(), cfg.RollingWindow, cfg.SuccessThreshold)
		if err != nil {
			return nil, err
		}
	}
	if stage == StageLatency {
		t.profiler = latency.NewProfiler(isa.Reference(), cfg.LatencyRepetitions, cfg.MaxProgramLength, cfg.WeightLatencyMax)
	}
	return t, nil
}

// RunID identifies this run in the store and in checkpoints.
func (t *Trainer) RunID() string {
	return t.runID
}

// SetRunID overrides the generated run ID, typically to resume one.
func (t *Trainer) SetRunID(id string) {
	if id != "" {
		t.runID = id
	}
}

// Run executes the configured number of episodes. A cancelled context
// stops cleanly between episodes: state already applied stays applied,
// a final checkpoint is written, and the partial result is returned.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	if err := t.restore(ctx); err != nil {
		return Result{}, err
	}

	for t.episode < t.cfg.Episodes {
		if ctx.Err() != nil {
			t.log.Info("training cancelled between episodes",
				zap.String("run_id", t.runID),
				zap.Int("episode", t.episode))
			break
		}

		outcome := t.runEpisode()
		t.rewards = append(t.rewards, outcome.Reward)
		t.episode++

		if t.episode%t.cfg.CheckpointEvery == 0 {
			if err := t.persist(ctx); err != nil {
				return Result{}, err
			}
		}
	}

	// The final write must survive the cancellation that stopped the loop.
	persistCtx := context.WithoutCancel(ctx)
	if err := t.persist(persistCtx); err != nil {
		return Result{}, err
	}
	result := t.result()
	if err := t.saveSummary(persistCtx, result); err != nil {
		return Result{}, err
	}
	t.log.Info("training finished",
		zap.String("run_id", t.runID),
		zap.Int("stage", int(t.stage)),
		zap.Int("episodes", result.Episodes),
		zap.Float64("best_reward", result.BestReward),
		zap.String("best_program", result.BestProgram.String()))
	return result, nil
}

// runEpisode samples one trajectory, scores it, updates the agent, and
// feeds the scheduler and discovery log.
func (t *Trainer) runEpisode() reward.Outcome {
	prog, steps := t.sampleProgram()
	outcome := t.evaluate(prog)

	if t.stage == StageLatency {
		t.agent.UpdateActorCritic(steps, outcome.Reward)
	} else {
		t.agent.UpdateREINFORCE(steps, outcome.Reward)
	}

	if t.scheduler != nil {
		if t.scheduler.Observe(outcome.Correct) {
			t.log.Info("curriculum advanced",
				zap.String("run_id", t.runID),
				zap.Int("episode", t.episode),
				zap.Int("curriculum_index", t.scheduler.Index()),
				zap.String("stage_name", t.scheduler.Active().Name))
		}
	}

	improved, newBest := t.discoveries.Record(prog, outcome.Reward, outcome.Correct, t.episode)
	if newBest {
		t.log.Info("new best program",
			zap.String("run_id", t.runID),
			zap.Int("episode", t.episode),
			zap.String("program", prog.String()),
			zap.Float64("reward", outcome.Reward),
			zap.Bool("correct", outcome.Correct))
	}
	if improved && t.stage == StageLatency && t.cfg.PriorWeight > 0 {
		t.refreshPrior()
	}
	return outcome
}

// sampleProgram queries the agent step by step until the terminal marker
// is drawn or the length bound is hit, accumulating the trajectory.
func (t *Trainer) sampleProgram() (isa.Program, []policy.Step) {
	maxLen := t.cfg.MaxProgramLength
	prog := make(isa.Program, 0, maxLen)
	steps := make([]policy.Step, 0, maxLen)

	stageIndex, stageCount := 0, 1
	if t.scheduler != nil {
		stageIndex, stageCount = t.scheduler.Index(), t.scheduler.StageCount()
	}

	var last isa.Instruction
	hasLast := false
	for len(prog) < maxLen {
		sample := t.agent.SelectAction(policy.StateInput{
			Step:       len(prog),
			MaxSteps:   maxLen,
			LastAction: last,
			HasLast:    hasLast,
			StageIndex: stageIndex,
			StageCount: stageCount,
		}, t.episode)

		prog = append(prog, sample.Instruction)
		steps = append(steps, sample.Step)
		last, hasLast = sample.Instruction, true
		if sample.Instruction == isa.Done {
			break
		}
	}
	return prog, steps
}

// evaluate scores a finished program under the active stage. Latency is
// only profiled for fully correct programs; everything else takes a zero
// improvement term, and profiling faults degrade to the proxy inside the
// profiler rather than failing the episode.
func (t *Trainer) evaluate(prog isa.Program) reward.Outcome {
	switch t.stage {
	case StageSyntax:
		return reward.Stage1(prog, t.rewardCfg)
	case StageCorrectness:
		return reward.Stage2(prog, t.scheduler.Active().Cases, t.rewardCfg, t.cfg.Workers)
	default:
		cases := t.scheduler.Active().Cases
		improvement := 0.0
		if reward.CorrectnessRate(prog, cases, t.cfg.MaxProgramLength, t.cfg.Workers) == 1.0 {
			improvement = t.profiler.Measure(prog, cases)
		}
		return reward.Stage3(prog, cases, t.rewardCfg, improvement, t.cfg.Workers)
	}
}

// refreshPrior rebuilds the pattern-guided exploration prior from the best
// correct discoveries so far.
func (t *Trainer) refreshPrior() {
	top := t.discoveries.TopCorrect(5)
	if len(top) == 0 {
		return
	}
	t.agent.SetPrior(policy.BuildPrior(top, t.agent.Vocabulary(), t.cfg.MaxProgramLength, t.cfg.PriorWeight))
}

// restore resumes from a persisted checkpoint for this run ID, if any.
func (t *Trainer) restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	checkpoint, ok, err := t.store.GetCheckpoint(ctx, t.runID)
	if err != nil || !ok {
		return err
	}
	if checkpoint.Stage != int(t.stage) {
		return errors.New("checkpoint stage does not match trainer stage")
	}
	if err := t.agent.Restore(checkpoint.Policy, checkpoint.Value, checkpoint.Baseline); err != nil {
		return fmt.Errorf("restore agent: %w", err)
	}
	if t.scheduler != nil {
		if err := t.scheduler.SetIndex(checkpoint.CurriculumIndex); err != nil {
			return err
		}
	}
	t.episode = checkpoint.Episode

	if records, ok, err := t.store.GetDiscoveries(ctx, t.runID); err != nil {
		return err
	} else if ok {
		t.discoveries.Restore(records)
		if t.stage == StageLatency && t.cfg.PriorWeight > 0 {
			t.refreshPrior()
		}
	}
	if history, ok, err := t.store.GetRewardHistory(ctx, t.runID); err != nil {
		return err
	} else if ok {
		t.rewards = history
	}

	t.log.Info("resumed from checkpoint",
		zap.String("run_id", t.runID),
		zap.Int("episode", t.episode),
		zap.Int("curriculum_index", checkpoint.CurriculumIndex))
	return nil
}

// persist writes the checkpoint, discovery log, and reward history.
func (t *Trainer) persist(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	if err := t.store.SaveCheckpoint(ctx, t.Checkpoint()); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := t.store.SaveDiscoveries(ctx, t.runID, t.discoveries.Snapshot()); err != nil {
		return fmt.Errorf("save discoveries: %w", err)
	}
	if err := t.store.SaveRewardHistory(ctx, t.runID, t.rewards); err != nil {
		return fmt.Errorf("save reward history: %w", err)
	}
	return nil
}

// Checkpoint snapshots the trainer's durable state.
func (t *Trainer) Checkpoint() model.Checkpoint {
	policyParams, valueParams, baseline := t.agent.Snapshot()
	curriculumIndex := 0
	if t.scheduler != nil {
		curriculumIndex = t.scheduler.Index()
	}
	return model.Checkpoint{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:           t.runID,
		Stage:           int(t.stage),
		Episode:         t.episode,
		CurriculumIndex: curriculumIndex,
		Policy:          policyParams,
		Value:           valueParams,
		Baseline:        baseline,
	}
}

func (t *Trainer) result() Result {
	result := Result{
		RunID:    t.runID,
		Stage:    t.stage,
		Episodes: t.episode,
		Rewards:  t.rewards,
	}
	if t.scheduler != nil {
		result.CurriculumIndex = t.scheduler.Index()
	}
	if best, ok := t.discoveries.Best(); ok {
		result.BestReward = best.Reward
		result.BestCorrect = best.Correct
		if prog, err := isa.ParseProgram(best.Sequence); err == nil {
			result.BestProgram = prog
		}
	}
	return result
}

func (t *Trainer) saveSummary(ctx context.Context, result Result) error {
	if t.store == nil {
		return nil
	}
	summary := model.RunSummary{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:        result.RunID,
		Stage:        int(result.Stage),
		Episodes:     result.Episodes,
		BestReward:   result.BestReward,
		BestSequence: result.BestProgram.String(),
		FinalStage:   result.CurriculumIndex,
		Solved:       result.BestCorrect,
	}
	if err := t.store.SaveRunSummary(ctx, summary); err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

// Discoveries exposes the current deduplicated log, best first.
func (t *Trainer) Discoveries() []model.DiscoveryRecord {
	return t.discoveries.Snapshot()
}
