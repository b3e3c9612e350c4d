package aggregator

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type progressState struct {
	NextIndex int       `json:"next_index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress is the corrective backfill's persistent resume cursor. It survives
// a crashed run so the next one continues after the last checkpoint.
type Progress struct {
	mu       sync.Mutex
	filePath string
	state    progressState
}

// LoadProgress reads the progress file, starting from zero when it doesn't
// exist yet.
func LoadProgress(filePath string) (*Progress, error) {
	p := &Progress{filePath: filePath}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &p.state); err != nil {
		return nil, err
	}
	return p, nil
}

// Next returns the index the next run should start from.
func (p *Progress) Next() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.NextIndex
}

// Advance checkpoints the cursor.
func (p *Progress) Advance(next int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.NextIndex = next
	return p.save()
}

// Reset clears the cursor after a completed run.
func (p *Progress) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.NextIndex = 0
	return p.save()
}

func (p *Progress) save() error {
	p.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.filePath, data, 0644)
}
