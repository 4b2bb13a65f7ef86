package memddpg

import "fmt"

// Session holds the context of a single rollout. The zero context of a
// Session is a copy of the agent's initial context, taken the first
// time the context is needed after creation or after Forget.
type Session struct {
	agent *MemDDPG
	ctx   []float64
}

// NewSession returns a new Session with no history
func (m *MemDDPG) NewSession() *Session {
	return &Session{agent: m}
}

// Context returns a copy of the current context of the Session
func (s *Session) Context() []float64 {
	if s.ctx == nil {
		s.ctx = s.agent.initial.Value()
	}
	return append([]float64(nil), s.ctx...)
}

// SetContext replaces the context of the Session with a copy of ctx
func (s *Session) SetContext(ctx []float64) error {
	if hypo := s.agent.config.HypoDim; len(ctx) != hypo {
		return fmt.Errorf("setContext: context shape does not match: "+
			"want(%v) have(%v)", hypo, len(ctx))
	}
	s.ctx = append([]float64(nil), ctx...)
	return nil
}

// Forget clears the history of the Session
func (s *Session) Forget() {
	s.ctx = nil
}
