package trainer

import (
	"sort"

	"sortforge/internal/isa"
	"sortforge/internal/model"
	"sortforge/internal/storage"
)

// DiscoveryLog deduplicates every sampled program by exact sequence
// equality, keeping the best reward each ever achieved. Its snapshot feeds
// reporting and the stage-3 pattern priors.
type DiscoveryLog struct {
	index   map[string]int
	records []model.DiscoveryRecord
}

func NewDiscoveryLog() *DiscoveryLog {
	return &DiscoveryLog{index: make(map[string]int)}
}

// Record notes one episode's program. improved reports whether the entry
// is new or beat its previous reward; newBest whether it now leads the log.
func (l *DiscoveryLog) Record(prog isa.Program, rewardValue float64, correct bool, episode int) (improved, newBest bool) {
	key := prog.String()
	if at, ok := l.index[key]; ok {
		if rewardValue > l.records[at].Reward {
			l.records[at].Reward = rewardValue
			l.records[at].Correct = correct
			l.records[at].Episode = episode
			improved = true
		}
	} else {
		l.index[key] = len(l.records)
		l.records = append(l.records, model.DiscoveryRecord{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Sequence: key,
			Reward:   rewardValue,
			Correct:  correct,
			Episode:  episode,
		})
		improved = true
	}
	if !improved {
		return false, false
	}

	best, ok := l.Best()
	return true, ok && best.Sequence == key
}

// Best returns the highest-reward record seen so far.
func (l *DiscoveryLog) Best() (model.DiscoveryRecord, bool) {
	if len(l.records) == 0 {
		return model.DiscoveryRecord{}, false
	}
	best := l.records[0]
	for _, r := range l.records[1:] {
		if r.Reward > best.Reward {
			best = r
		}
	}
	return best, true
}

// Snapshot returns the log ordered by descending reward, ties broken by
// discovery order, for persistence and reporting.
func (l *DiscoveryLog) Snapshot() []model.DiscoveryRecord {
	out := append([]model.DiscoveryRecord(nil), l.records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reward > out[j].Reward
	})
	return out
}

// TopCorrect parses up to k of the best fully-correct programs, the raw
// material for pattern-guided exploration.
func (l *DiscoveryLog) TopCorrect(k int) []isa.Program {
	var out []isa.Program
	for _, record := range l.Snapshot() {
		if !record.Correct {
			continue
		}
		prog, err := isa.ParseProgram(record.Sequence)
		if err != nil {
			continue
		}
		out = append(out, prog)
		if len(out) == k {
			break
		}
	}
	return out
}

// Restore reloads a persisted snapshot, replacing current contents.
func (l *DiscoveryLog) Restore(records []model.DiscoveryRecord) {
	l.index = make(map[string]int, len(records))
	l.records = l.records[:0]
	for _, record := range records {
		if _, dup := l.index[record.Sequence]; dup {
			continue
		}
		l.index[record.Sequence] = len(l.records)
		l.records = append(l.records, record)
	}
}

// Len reports the number of distinct programs discovered.
func (l *DiscoveryLog) Len() int {
	return len(l.records)
}
