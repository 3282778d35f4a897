package calling

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process provider used by tests and local runs.
// It honors the idempotent get-or-create contract and drives attachments
// through Connecting → Joined immediately on join.
type MemoryProvider struct {
	clock func() time.Time

	mu    sync.Mutex
	calls map[string]*memoryCall
}

type memoryCall struct {
	info         CallInfo
	ended        bool
	startedAt    time.Time
	participants map[string]Participant
	attachments  []*RemoteAttachment
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		clock: time.Now,
		calls: make(map[string]*memoryCall),
	}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *MemoryProvider) GetOrCreateCall(ctx context.Context, req GetOrCreateCallRequest) (CallInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.calls[req.CallID]; ok {
		// Same identifier resolves to the same call; later metadata is ignored.
		return c.info, nil
	}

	now := p.clock().UTC()
	c := &memoryCall{
		info: CallInfo{
			ID:          req.CallID,
			Kind:        req.Kind,
			CreatedBy:   req.CreatedBy,
			StartsAt:    req.StartsAt,
			Description: req.Description,
			CreatedAt:   now,
		},
		startedAt:    now,
		participants: make(map[string]Participant),
	}
	p.calls[req.CallID] = c
	return c.info, nil
}

func (p *MemoryProvider) Join(ctx context.Context, req JoinRequest) (Attachment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.calls[req.CallID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.ended {
		return nil, ErrCallEnded
	}

	a := NewRemoteAttachment(req.CallID, func(ctx context.Context) error {
		return p.EndCall(ctx, req.CallID)
	}, func(ctx context.Context) (CallStats, error) {
		return p.stats(req.CallID)
	})
	c.attachments = append(c.attachments, a)
	c.participants[req.UserID] = Participant{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		JoinedAt:    p.clock().UTC(),
	}

	a.Report(StateConnecting)
	a.Report(StateJoined)
	p.broadcastParticipantsLocked(c)
	return a, nil
}

func (p *MemoryProvider) EndCall(ctx context.Context, callID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.calls[callID]
	if !ok {
		return ErrNotFound
	}
	if c.ended {
		return nil
	}
	c.ended = true
	for _, a := range c.attachments {
		a.Report(StateEnded)
	}
	c.attachments = nil
	return nil
}

func (p *MemoryProvider) ListRecordings(ctx context.Context, callID string) ([]Recording, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.calls[callID]; !ok {
		return nil, ErrNotFound
	}
	// The memory provider never records.
	return nil, nil
}

func (p *MemoryProvider) stats(callID string) (CallStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.calls[callID]
	if !ok {
		return CallStats{}, ErrNotFound
	}
	return CallStats{
		CallID:           callID,
		ParticipantCount: len(c.participants),
		StartedAt:        c.startedAt,
		Duration:         p.clock().UTC().Sub(c.startedAt),
	}, nil
}

func (p *MemoryProvider) broadcastParticipantsLocked(c *memoryCall) {
	list := make([]Participant, 0, len(c.participants))
	for _, pt := range c.participants {
		list = append(list, pt)
	}
	for _, a := range c.attachments {
		a.ReportParticipants(list)
	}
}
