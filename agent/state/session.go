package state

// Session is the short-term, session-scoped state. Volatile by design: it
// lives for one login and Reset wipes it entirely on logout. It is not
// safe for concurrent use; a session serves one conversation at a time.
type Session struct {
	Identity      string
	CurrentGroup  map[string]any
	LastQuery     string
	LastResponse  string
	ActiveDomains []string

	window      []Message
	windowLimit int

	statusFlags map[string]bool
}

// Message is one turn kept in the rolling conversation window.
type Message struct {
	Role     string
	Content  string
	Metadata map[string]any
}

const defaultWindowLimit = 10

func NewSession() *Session {
	s := &Session{windowLimit: defaultWindowLimit}
	s.resetFlags()
	return s
}

func (s *Session) resetFlags() {
	s.statusFlags = map[string]bool{
		StatusContextLoaded:     false,
		StatusMemoryConsulted:   false,
		StatusAmbiguityResolved: false,
		StatusResponseDelivered: false,
	}
}

// SetIdentity binds the session to a user and marks the context loaded.
func (s *Session) SetIdentity(identity string) {
	s.Identity = identity
	s.statusFlags[StatusContextLoaded] = true
}

func (s *Session) SetGroup(group map[string]any) {
	s.CurrentGroup = group
}

func (s *Session) SetLastQuery(query string) {
	s.LastQuery = query
}

// SetLastResponse records the delivered answer and raises the delivery flag.
func (s *Session) SetLastResponse(response string) {
	s.LastResponse = response
	s.statusFlags[StatusResponseDelivered] = true
}

func (s *Session) SetActiveDomains(domains []string) {
	s.ActiveDomains = domains
}

// Append adds one turn to the conversation window, evicting the oldest
// turn once the bound is reached.
func (s *Session) Append(role, content string, metadata map[string]any) {
	s.window = append(s.window, Message{Role: role, Content: content, Metadata: metadata})
	if len(s.window) > s.windowLimit {
		s.window = s.window[len(s.window)-s.windowLimit:]
	}
}

// Window returns the retained conversation turns, oldest first.
func (s *Session) Window() []Message {
	out := make([]Message, len(s.window))
	copy(out, s.window)
	return out
}

// StatusFlags returns a copy of the session status flags.
func (s *Session) StatusFlags() map[string]bool {
	out := make(map[string]bool, len(s.statusFlags))
	for k, v := range s.statusFlags {
		out[k] = v
	}
	return out
}

// MarkFlag raises a session status flag; unknown keys are ignored.
func (s *Session) MarkFlag(key string) {
	if _, ok := s.statusFlags[key]; ok {
		s.statusFlags[key] = true
	}
}

// Reset wipes the session on logout.
func (s *Session) Reset() {
	s.Identity = ""
	s.CurrentGroup = nil
	s.LastQuery = ""
	s.LastResponse = ""
	s.ActiveDomains = nil
	s.window = nil
	s.resetFlags()
}
