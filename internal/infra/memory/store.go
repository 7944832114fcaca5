package memory

import (
	"context"
	"sync"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

// Store is an in-memory implementation of app.Store. A single mutex guards every map, which
// makes ApplyAnswer trivially atomic.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]domain.Session
	questions    map[string]domain.Question
	participants map[string]*domain.Participant
	responses    map[string][]domain.Response
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]domain.Session),
		questions:    make(map[string]domain.Question),
		participants: make(map[string]*domain.Participant),
		responses:    make(map[string][]domain.Response),
	}
}

func (s *Store) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Code]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[session.Code] = copySession(session)
	return nil
}

func (s *Store) GetSession(_ context.Context, code string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *Store) ListSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, copySession(session))
	}
	game.SortSessions(out)
	return out, nil
}

func (s *Store) SaveSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Code]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.Code] = copySession(session)
	return nil
}

func (s *Store) FindSessionByCurrentQuestion(_ context.Context, questionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if questionID != "" && session.CurrentQuestionID == questionID {
			return copySession(session), nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (s *Store) DeleteSession(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, code)
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (s *Store) ListQuestions(_ context.Context, sessionCode string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.SessionCode == sessionCode {
			out = append(out, copyQuestion(q))
		}
	}
	return game.SortQuestions(out), nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) ReorderQuestions(_ context.Context, sessionCode string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		q, ok := s.questions[id]
		if !ok || q.SessionCode != sessionCode {
			return domain.ErrQuestionNotFound
		}
		q.Position = i
		s.questions[id] = q
	}
	return nil
}

func (s *Store) DeleteQuestions(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.questions {
		if q.SessionCode == sessionCode {
			delete(s.questions, id)
		}
	}
	return nil
}

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyParticipant(p)
	s.participants[p.ID] = &cp
	return nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return copyParticipant(*p), nil
}

func (s *Store) ListParticipants(_ context.Context, sessionCode string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for _, p := range s.participants {
		if p.SessionCode == sessionCode {
			out = append(out, copyParticipant(*p))
		}
	}
	return game.SortParticipants(out), nil
}

func (s *Store) ApplyAnswer(_ context.Context, participantID, questionID string, delta int, correct bool) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return false, 0, domain.ErrParticipantNotFound
	}
	if p.HasAttempted(questionID) {
		return false, p.TotalScore, nil
	}
	p.Attempted = append(p.Attempted, questionID)
	if correct {
		p.Correct = append(p.Correct, questionID)
	}
	p.TotalScore += delta
	return true, p.TotalScore, nil
}

func (s *Store) DeleteParticipants(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.participants {
		if p.SessionCode == sessionCode {
			delete(s.participants, id)
		}
	}
	return nil
}

func (s *Store) CreateResponse(_ context.Context, r domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[r.ParticipantID] = append(s.responses[r.ParticipantID], r)
	return nil
}

func (s *Store) ListResponses(_ context.Context, participantID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Response(nil), s.responses[participantID]...), nil
}

func (s *Store) DeleteResponses(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, rs := range s.responses {
		kept := rs[:0]
		for _, r := range rs {
			if r.SessionCode != sessionCode {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(s.responses, pid)
		} else {
			s.responses[pid] = kept
		}
	}
	return nil
}

func copySession(s domain.Session) domain.Session {
	if s.QuestionEndsAt != nil {
		t := *s.QuestionEndsAt
		s.QuestionEndsAt = &t
	}
	return s
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}

func copyParticipant(p domain.Participant) domain.Participant {
	p.Attempted = append([]string(nil), p.Attempted...)
	p.Correct = append([]string(nil), p.Correct...)
	return p
}
