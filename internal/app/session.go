package app

import (
	"sort"
	"sync"
	"time"

	"quizhub/internal/domain"
)

// Event kinds delivered to subscribers.
const (
	EventStateUpdate = "STATE_UPDATE"
	EventTick        = "TICK"
)

// Event is a broadcast from the session engine to attached connections.
// STATE_UPDATE carries a full snapshot; TICK only the countdown value.
type Event struct {
	Type          string               `json:"type"`
	State         *domain.SessionState `json:"state,omitempty"`
	TimeRemaining int                  `json:"timeRemaining,omitempty"`
}

type participant struct {
	id        string
	name      string
	color     string
	score     int
	connected bool
	joinOrder int
}

type answerRecord struct {
	optionID string
	elapsed  int // seconds into the question at submission
	seq      int // processing order within the question, used for tie-breaks
	correct  bool
	awarded  int
}

// Session owns one live quiz run: phase transitions, roster, answer ledger,
// scoring and the countdown timer. Every mutating operation funnels through
// one mutex, so concurrent actions (a late answer racing timer expiry, say)
// resolve in processing order rather than by wall clock.
type Session struct {
	id       string
	code     string
	quiz     domain.Quiz
	settings domain.Settings
	now      func() time.Time
	manual   bool // countdown driven by Tick calls instead of a background ticker

	mu           sync.Mutex
	phase        domain.Phase
	questionIdx  int
	remaining    int
	epoch        int // bumped on every phase change; a stale ticker sees a mismatch and stops
	participants map[string]*participant
	joinSeq      int
	attachSeq    int
	attachGens   map[string]int // client id -> latest attach token
	answers      map[int]map[string]*answerRecord
	answerSeq    int
	lastActivity time.Time
	subscribers  map[chan Event]struct{}
}

// NewSession creates a session in WAITING with its own quiz and settings snapshot.
func NewSession(id, code string, quiz domain.Quiz, settings domain.Settings) *Session {
	return newSession(id, code, quiz, settings, time.Now, false)
}

// NewSessionWithClock is test-only: deterministic timestamps and a countdown
// driven by explicit Tick calls instead of a background ticker.
func NewSessionWithClock(id, code string, quiz domain.Quiz, settings domain.Settings, now func() time.Time) *Session {
	return newSession(id, code, quiz, settings, now, true)
}

func newSession(id, code string, quiz domain.Quiz, settings domain.Settings, now func() time.Time, manual bool) *Session {
	return &Session{
		id:           id,
		code:         code,
		quiz:         quiz,
		settings:     settings,
		now:          now,
		manual:       manual,
		phase:        domain.PhaseWaiting,
		participants: make(map[string]*participant),
		attachGens:   make(map[string]int),
		answers:      make(map[int]map[string]*answerRecord),
		lastActivity: now(),
		subscribers:  make(map[chan Event]struct{}),
	}
}

// ID returns the session's internal identifier.
func (s *Session) ID() string { return s.id }

// Code returns the short join code.
func (s *Session) Code() string { return s.code }

// Join registers a new participant (WAITING only) or restores a returning one.
// A known client id is accepted in any phase; its score and answer history are
// untouched, only liveness flips back on.
func (s *Session) Join(clientID, name, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if p, ok := s.participants[clientID]; ok {
		p.connected = true
		s.broadcastStateLocked()
		return nil
	}
	if s.phase != domain.PhaseWaiting {
		return domain.ErrSessionStarted
	}
	if name == "" {
		if s.settings.RequirePlayerNames {
			return domain.ErrNameRequired
		}
		name = "Anonymous"
	}
	if color == "" {
		color = "#000000"
	}
	s.participants[clientID] = &participant{
		id:        clientID,
		name:      name,
		color:     color,
		connected: true,
		joinOrder: s.joinSeq,
	}
	s.joinSeq++
	s.broadcastStateLocked()
	return nil
}

// Start moves the session from WAITING to the first question.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseWaiting {
		return domain.ErrInvalidTransition
	}
	s.enterQuestionLocked(0)
	s.broadcastStateLocked()
	return nil
}

// SkipTimer short-circuits the countdown to zero, freezing answers and moving
// to REVIEW. The resulting state is identical to a natural expiry.
func (s *Session) SkipTimer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseActive {
		return domain.ErrInvalidTransition
	}
	s.finishQuestionLocked()
	s.broadcastStateLocked()
	return nil
}

// NextQuestion advances from REVIEW to the next question, or to FINISHED when
// the quiz is exhausted. Any other phase is a rejected no-op.
func (s *Session) NextQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseReview {
		return domain.ErrInvalidTransition
	}
	if s.questionIdx+1 < len(s.quiz.Questions) {
		s.enterQuestionLocked(s.questionIdx + 1)
	} else {
		s.phase = domain.PhaseFinished
		s.epoch++
		s.remaining = 0
	}
	s.broadcastStateLocked()
	return nil
}

// Advance is the generic host control: skip the timer while a question is live,
// move on while in review. Invalid in WAITING and FINISHED.
func (s *Session) Advance() error {
	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()

	switch phase {
	case domain.PhaseActive:
		return s.SkipTimer()
	case domain.PhaseReview:
		return s.NextQuestion()
	default:
		return domain.ErrInvalidTransition
	}
}

// Reset returns the session to WAITING: scores zeroed, ledger cleared, and
// participants that are no longer connected pruned. Always valid, idempotent.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.phase = domain.PhaseWaiting
	s.questionIdx = 0
	s.remaining = 0
	s.epoch++
	s.answers = make(map[int]map[string]*answerRecord)
	s.answerSeq = 0
	for id, p := range s.participants {
		if !p.connected {
			delete(s.participants, id)
			continue
		}
		p.score = 0
	}
	s.broadcastStateLocked()
	return nil
}

// SubmitAnswer records exactly one answer per participant per question and
// scores it immediately from the elapsed time at submission. questionIdx < 0
// means "the current question"; a stale index is rejected. Later submissions
// for an already answered question never overwrite the first.
func (s *Session) SubmitAnswer(clientID string, questionIdx int, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseActive {
		return domain.ErrInvalidTransition
	}
	if questionIdx >= 0 && questionIdx != s.questionIdx {
		return domain.ErrInvalidTransition
	}
	p, ok := s.participants[clientID]
	if !ok {
		return domain.ErrUnknownParticipant
	}
	if !p.connected {
		return domain.ErrUnknownParticipant
	}
	ledger := s.answers[s.questionIdx]
	if ledger == nil {
		ledger = make(map[string]*answerRecord)
		s.answers[s.questionIdx] = ledger
	}
	if _, dup := ledger[clientID]; dup {
		return domain.ErrDuplicateAnswer
	}

	question := s.quiz.Questions[s.questionIdx]
	var selected *domain.Option
	for i := range question.Options {
		if question.Options[i].ID == optionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return domain.ErrOptionNotFound
	}

	limit := s.quiz.TimeLimitFor(s.questionIdx)
	elapsed := limit - s.remaining
	awarded := scoreAnswer(s.settings.PointsSystem, selected.Correct, s.quiz.PointsFor(s.questionIdx), elapsed, limit)
	ledger[clientID] = &answerRecord{
		optionID: optionID,
		elapsed:  elapsed,
		seq:      s.answerSeq,
		correct:  selected.Correct,
		awarded:  awarded,
	}
	s.answerSeq++
	p.score += awarded

	if s.allConnectedAnsweredLocked() {
		s.finishQuestionLocked()
	}
	s.broadcastStateLocked()
	return nil
}

// Attach marks a returning participant live again and returns a full snapshot
// for immediate delivery to the new connection, plus a token identifying this
// attachment. A later Attach for the same client id supersedes the token, so
// the replaced connection's Detach becomes a no-op. Unknown client ids get the
// snapshot too; they are expected to JOIN while the lobby is open.
func (s *Session) Attach(clientID string, isHost bool) (domain.SessionState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.attachSeq++
	s.attachGens[clientID] = s.attachSeq
	if !isHost {
		if p, ok := s.participants[clientID]; ok {
			p.connected = true
		}
	}
	return s.snapshotLocked(), s.attachSeq
}

// Detach flips the participant's liveness off, but only when token still names
// the client's current attachment; a stale socket dying after a reconnect must
// not mark the live replacement disconnected. During WAITING the participant
// is removed outright so the lobby never shows ghosts; in any later phase the
// entry stays, preserving score and answers for reconnection.
func (s *Session) Detach(clientID string, token int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attachGens[clientID] != token {
		return
	}
	delete(s.attachGens, clientID)
	s.touchLocked()

	p, ok := s.participants[clientID]
	if !ok {
		return
	}
	p.connected = false
	if s.phase == domain.PhaseWaiting {
		delete(s.participants, clientID)
		s.broadcastStateLocked()
	}
}

// Subscribe registers a broadcast channel. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.touchLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// State returns the current authoritative snapshot.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Idle reports whether the session has no attached connections and has seen no
// activity for at least ttl. Used by the registry janitor.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0 && now.Sub(s.lastActivity) >= ttl
}

// Tick advances the countdown by one second through the same path the
// background ticker uses. Only meaningful for manual-clock sessions.
func (s *Session) Tick() {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	s.tick(epoch)
}

func (s *Session) runTimer(epoch int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if !s.tick(epoch) {
			return
		}
	}
}

// tick decrements the countdown for the given epoch. Returns false once the
// ticker should stop: question finished, phase changed, or epoch superseded.
func (s *Session) tick(epoch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.phase != domain.PhaseActive {
		return false
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finishQuestionLocked()
		s.broadcastStateLocked()
		return false
	}
	s.broadcastLocked(Event{Type: EventTick, TimeRemaining: s.remaining})
	return true
}

func (s *Session) enterQuestionLocked(idx int) {
	s.phase = domain.PhaseActive
	s.questionIdx = idx
	s.remaining = s.quiz.TimeLimitFor(idx)
	s.answerSeq = 0
	s.epoch++
	if !s.manual {
		go s.runTimer(s.epoch)
	}
}

func (s *Session) finishQuestionLocked() {
	s.phase = domain.PhaseReview
	s.remaining = 0
	s.epoch++
}

func (s *Session) allConnectedAnsweredLocked() bool {
	ledger := s.answers[s.questionIdx]
	connected := 0
	for id, p := range s.participants {
		if !p.connected {
			continue
		}
		connected++
		if _, ok := ledger[id]; !ok {
			return false
		}
	}
	return connected > 0
}

func (s *Session) touchLocked() {
	s.lastActivity = s.now()
}

func (s *Session) broadcastStateLocked() {
	state := s.snapshotLocked()
	s.broadcastLocked(Event{Type: EventStateUpdate, State: &state})
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so a slow connection never
			// blocks the serialization point.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionState {
	ledger := s.answers[s.questionIdx]

	views := make([]domain.ParticipantView, 0, len(s.participants))
	connected := 0
	for _, p := range s.participants {
		if p.connected {
			connected++
		}
		_, answered := ledger[p.id]
		views = append(views, domain.ParticipantView{
			ID:        p.id,
			Name:      p.name,
			Color:     p.color,
			Score:     p.score,
			Connected: p.connected,
			Answered:  answered,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return s.participants[views[i].ID].joinOrder < s.participants[views[j].ID].joinOrder
	})

	state := domain.SessionState{
		SessionID:            s.id,
		SessionCode:          s.code,
		Status:               s.phase,
		CurrentQuestionIndex: s.questionIdx,
		TimeRemaining:        s.remaining,
		TotalQuestions:       len(s.quiz.Questions),
		CurrentQuestion:      s.questionViewLocked(),
		Participants:         views,
		ConnectedCount:       connected,
		AnswersReceived:      len(ledger),
		Settings:             s.settings,
	}

	switch s.phase {
	case domain.PhaseReview:
		state.LastAwards = s.awardsLocked()
		switch s.settings.LeaderboardFrequency {
		case domain.LeaderboardEndOnly:
			// Withheld until FINISHED.
		case domain.LeaderboardTop3:
			state.Leaderboard = s.leaderboardLocked(3)
		default:
			state.Leaderboard = s.leaderboardLocked(0)
		}
	case domain.PhaseFinished:
		state.LastAwards = s.awardsLocked()
		state.Leaderboard = s.leaderboardLocked(0)
	}
	return state
}

// questionViewLocked strips the answer key while the question is live and
// reveals it (plus explanation) once the phase reaches REVIEW.
func (s *Session) questionViewLocked() *domain.QuestionView {
	if s.phase == domain.PhaseWaiting || s.questionIdx >= len(s.quiz.Questions) {
		return nil
	}
	q := s.quiz.Questions[s.questionIdx]
	reveal := s.phase == domain.PhaseReview || s.phase == domain.PhaseFinished

	view := &domain.QuestionView{
		ID:        q.ID,
		Text:      q.Text,
		TimeLimit: s.quiz.TimeLimitFor(s.questionIdx),
		Media:     q.MediaURL,
	}
	for _, opt := range q.Options {
		ov := domain.OptionView{ID: opt.ID, Text: opt.Text}
		if reveal {
			correct := opt.Correct
			ov.IsCorrect = &correct
		}
		view.Options = append(view.Options, ov)
	}
	if reveal {
		view.Explanation = q.Explanation
	}
	return view
}

func (s *Session) awardsLocked() []domain.Award {
	ledger := s.answers[s.questionIdx]
	awards := make([]domain.Award, 0, len(ledger))
	for id, rec := range ledger {
		awards = append(awards, domain.Award{
			ParticipantID: id,
			OptionID:      rec.optionID,
			Correct:       rec.correct,
			Points:        rec.awarded,
		})
	}
	sort.Slice(awards, func(i, j int) bool {
		if awards[i].Points != awards[j].Points {
			return awards[i].Points > awards[j].Points
		}
		return awards[i].ParticipantID < awards[j].ParticipantID
	})
	return awards
}

// leaderboardLocked ranks by score, then by who answered the current question
// first, then by join order. limit of 0 means the full list.
func (s *Session) leaderboardLocked(limit int) []domain.LeaderboardEntry {
	ledger := s.answers[s.questionIdx]

	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := s.participants[ids[i]], s.participants[ids[j]]
		if pi.score != pj.score {
			return pi.score > pj.score
		}
		ri, rj := ledger[ids[i]], ledger[ids[j]]
		switch {
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj != nil && ri.seq != rj.seq:
			return ri.seq < rj.seq
		}
		return pi.joinOrder < pj.joinOrder
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(ids))
	for rank, id := range ids {
		p := s.participants[id]
		entries = append(entries, domain.LeaderboardEntry{
			ID:    p.id,
			Name:  p.name,
			Color: p.color,
			Score: p.score,
			Rank:  rank + 1,
		})
	}
	return entries
}
