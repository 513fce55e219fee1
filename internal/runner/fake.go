package runner

import (
	"context"
	"sync"
)

// Recorder is a Runner that records commands instead of running them. Hook,
// when set, is called for every command and decides the result, which lets
// tests create the files a real tool would have produced.
type Recorder struct {
	mu   sync.Mutex
	Cmds []Cmd
	Hook func(c Cmd) ([]byte, error)
}

func (r *Recorder) Run(ctx context.Context, c Cmd) ([]byte, error) {
	r.mu.Lock()
	r.Cmds = append(r.Cmds, c)
	hook := r.Hook
	r.mu.Unlock()
	if hook != nil {
		return hook(c)
	}
	return nil, nil
}

func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Cmds))
	for i, c := range r.Cmds {
		out[i] = c.String()
	}
	return out
}
