package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

// Store persists quiz state in Postgres. Options are kept as JSONB on the question row and
// attempts hold one row per (participant, question) so repeats hit the primary key.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const sessionColumns = `code, title, status, current_question_id, current_position, question_ends_at, created_at`

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		s       domain.Session
		status  string
		current *string
		endsAt  *time.Time
	)
	if err := row.Scan(&s.Code, &s.Title, &status, &current, &s.CurrentPosition, &endsAt, &s.CreatedAt); err != nil {
		return domain.Session{}, err
	}
	s.Status = domain.Status(status)
	if current != nil {
		s.CurrentQuestionID = *current
	}
	s.QuestionEndsAt = endsAt
	return s, nil
}

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (code, title, status, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (code) DO NOTHING`,
		session.Code, session.Title, string(session.Status), session.CreatedAt)
	if err != nil {
		return domain.Unavailable("create session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, code string) (domain.Session, error) {
	session, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.Unavailable("get session", err)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, code`)
	if err != nil {
		return nil, domain.Unavailable("list sessions", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list sessions", err)
	}
	return out, nil
}

func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	var current *string
	if session.CurrentQuestionID != "" {
		current = &session.CurrentQuestionID
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET title=$2, status=$3, current_question_id=$4, current_position=$5, question_ends_at=$6 WHERE code=$1`,
		session.Code, session.Title, string(session.Status), current, session.CurrentPosition, session.QuestionEndsAt)
	if err != nil {
		return domain.Unavailable("save session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) FindSessionByCurrentQuestion(ctx context.Context, questionID string) (domain.Session, error) {
	session, err := scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE current_question_id=$1 LIMIT 1`, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.Unavailable("find session", err)
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE code=$1`, code)
	if err != nil {
		return domain.Unavailable("delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

const questionColumns = `id, session_code, position, text, options, created_at`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	if err := row.Scan(&q.ID, &q.SessionCode, &q.Position, &q.Text, &raw, &q.CreatedAt); err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.SessionCode, q.Position, q.Text, raw, q.CreatedAt)
	if err != nil {
		return domain.Unavailable("create question", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.Unavailable("get question", err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, sessionCode string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE session_code=$1 ORDER BY position, created_at, id`, sessionCode)
	if err != nil {
		return nil, domain.Unavailable("list questions", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list questions", err)
	}
	return game.SortQuestions(out), nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE questions SET text=$2, options=$3, position=$4 WHERE id=$1`,
		q.ID, q.Text, raw, q.Position)
	if err != nil {
		return domain.Unavailable("update question", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return domain.Unavailable("delete question", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) ReorderQuestions(ctx context.Context, sessionCode string, ids []string) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for i, id := range ids {
			tag, err := tx.Exec(ctx, `UPDATE questions SET position=$3 WHERE id=$1 AND session_code=$2`, id, sessionCode, i)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrQuestionNotFound
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.Unavailable("reorder questions", err)
	}
	return err
}

func (s *Store) DeleteQuestions(ctx context.Context, sessionCode string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE session_code=$1`, sessionCode); err != nil {
		return domain.Unavailable("delete questions", err)
	}
	return nil
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, session_code, name, join_code, total_score, joined_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.SessionCode, p.Name, p.JoinCode, p.TotalScore, p.JoinedAt)
	if err != nil {
		return domain.Unavailable("create participant", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	ps, err := s.queryParticipants(ctx, `p.id=$1`, id)
	if err != nil {
		return domain.Participant{}, err
	}
	if len(ps) == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return ps[0], nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionCode string) ([]domain.Participant, error) {
	ps, err := s.queryParticipants(ctx, `p.session_code=$1`, sessionCode)
	if err != nil {
		return nil, err
	}
	return game.SortParticipants(ps), nil
}

// queryParticipants loads participants matching where together with their attempts in one query.
func (s *Store) queryParticipants(ctx context.Context, where string, arg string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `
SELECT p.id, p.session_code, p.name, p.join_code, p.total_score, p.joined_at, a.question_id, a.correct
FROM participants p
LEFT JOIN attempts a ON a.participant_id = p.id
WHERE `+where+`
ORDER BY p.joined_at, p.id`, arg)
	if err != nil {
		return nil, domain.Unavailable("list participants", err)
	}
	defer rows.Close()

	var out []domain.Participant
	index := make(map[string]int)
	for rows.Next() {
		var (
			p          domain.Participant
			questionID *string
			correct    *bool
		)
		if err := rows.Scan(&p.ID, &p.SessionCode, &p.Name, &p.JoinCode, &p.TotalScore, &p.JoinedAt, &questionID, &correct); err != nil {
			return nil, err
		}
		i, seen := index[p.ID]
		if !seen {
			i = len(out)
			index[p.ID] = i
			out = append(out, p)
		}
		if questionID != nil {
			out[i].Attempted = append(out[i].Attempted, *questionID)
			if correct != nil && *correct {
				out[i].Correct = append(out[i].Correct, *questionID)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list participants", err)
	}
	return out, nil
}

// ApplyAnswer locks the participant row, then relies on the attempts primary key so only the
// first submission per question adds points.
func (s *Store) ApplyAnswer(ctx context.Context, participantID, questionID string, delta int, correct bool) (bool, int, error) {
	var (
		applied bool
		total   int
	)
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT total_score FROM participants WHERE id=$1 FOR UPDATE`, participantID).Scan(&total)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO attempts (participant_id, question_id, correct) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			participantID, questionID, correct)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		applied = true
		return tx.QueryRow(ctx,
			`UPDATE participants SET total_score = total_score + $2 WHERE id=$1 RETURNING total_score`,
			participantID, delta).Scan(&total)
	})
	if errors.Is(err, domain.ErrParticipantNotFound) {
		return false, 0, err
	}
	if err != nil {
		return false, 0, domain.Unavailable("apply answer", err)
	}
	return applied, total, nil
}

func (s *Store) DeleteParticipants(ctx context.Context, sessionCode string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE session_code=$1`, sessionCode); err != nil {
		return domain.Unavailable("delete participants", err)
	}
	return nil
}

func (s *Store) CreateResponse(ctx context.Context, r domain.Response) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO responses (id, session_code, participant_id, question_id, selected_option, is_correct, points, time_left, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.SessionCode, r.ParticipantID, r.QuestionID, r.SelectedOption, r.IsCorrect, r.Points, r.TimeLeft, r.CreatedAt)
	if err != nil {
		return domain.Unavailable("create response", err)
	}
	return nil
}

func (s *Store) ListResponses(ctx context.Context, participantID string) ([]domain.Response, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, session_code, participant_id, question_id, selected_option, is_correct, points, time_left, created_at
FROM responses WHERE participant_id=$1 ORDER BY created_at`, participantID)
	if err != nil {
		return nil, domain.Unavailable("list responses", err)
	}
	defer rows.Close()
	var out []domain.Response
	for rows.Next() {
		var r domain.Response
		if err := rows.Scan(&r.ID, &r.SessionCode, &r.ParticipantID, &r.QuestionID, &r.SelectedOption, &r.IsCorrect, &r.Points, &r.TimeLeft, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list responses", err)
	}
	return out, nil
}

func (s *Store) DeleteResponses(ctx context.Context, sessionCode string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM responses WHERE session_code=$1`, sessionCode); err != nil {
		return domain.Unavailable("delete responses", err)
	}
	return nil
}
