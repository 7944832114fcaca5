package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

// Store keeps all quiz state in Redis so several server instances can share one game.
// Layout:
//
//	quiz:sessions                        SET of session codes
//	quiz:session:{code}                  HASH title status current position ends_at created_at
//	quiz:current:{questionID}            STRING code of the session playing that question
//	quiz:session:{code}:questions        SET of question ids
//	quiz:question:{id}                   STRING question JSON
//	quiz:session:{code}:participants     SET of participant ids
//	quiz:participant:{id}                HASH session name join_code score joined_at
//	quiz:participant:{id}:attempted      SET of question ids
//	quiz:participant:{id}:correct        SET of question ids
//	quiz:responses:{participantID}       LIST of response JSON
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// applyAnswerScript marks a question attempted and adds the delta in one step. SADD returning 0
// means the participant already attempted it and nothing else changes.
var applyAnswerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[3]) == 0 then
  return {-1, 0}
end
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
  return {0, tonumber(redis.call('HGET', KEYS[3], 'score') or '0')}
end
if ARGV[3] == '1' then
  redis.call('SADD', KEYS[2], ARGV[1])
end
return {1, redis.call('HINCRBY', KEYS[3], 'score', ARGV[2])}
`)

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	added, err := s.client.SAdd(ctx, sessionsKey, session.Code).Result()
	if err != nil {
		return domain.Unavailable("create session", err)
	}
	if added == 0 {
		return domain.ErrSessionExists
	}
	if err := s.client.HSet(ctx, sessionKey(session.Code), sessionFields(session)).Err(); err != nil {
		return domain.Unavailable("create session", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, code string) (domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(code)).Result()
	if err != nil {
		return domain.Session{}, domain.Unavailable("get session", err)
	}
	if len(fields) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return parseSession(code, fields), nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	codes, err := s.client.SMembers(ctx, sessionsKey).Result()
	if err != nil {
		return nil, domain.Unavailable("list sessions", err)
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGetAll(ctx, sessionKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, domain.Unavailable("list sessions", err)
	}
	out := make([]domain.Session, 0, len(codes))
	for i, cmd := range cmds {
		if fields := cmd.Val(); len(fields) > 0 {
			out = append(out, parseSession(codes[i], fields))
		}
	}
	game.SortSessions(out)
	return out, nil
}

func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	prev, err := s.GetSession(ctx, session.Code)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev.CurrentQuestionID != "" && prev.CurrentQuestionID != session.CurrentQuestionID {
			pipe.Del(ctx, currentKey(prev.CurrentQuestionID))
		}
		if session.CurrentQuestionID != "" {
			pipe.Set(ctx, currentKey(session.CurrentQuestionID), session.Code, 0)
		}
		pipe.HSet(ctx, sessionKey(session.Code), sessionFields(session))
		return nil
	})
	if err != nil {
		return domain.Unavailable("save session", err)
	}
	return nil
}

func (s *Store) FindSessionByCurrentQuestion(ctx context.Context, questionID string) (domain.Session, error) {
	code, err := s.client.Get(ctx, currentKey(questionID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.Unavailable("find session", err)
	}
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Session{}, err
	}
	if session.CurrentQuestionID != questionID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, code string) error {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	if session.CurrentQuestionID != "" {
		pipe.Del(ctx, currentKey(session.CurrentQuestionID))
	}
	pipe.Del(ctx, sessionKey(code))
	pipe.SRem(ctx, sessionsKey, code)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("delete session", err)
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, questionKey(q.ID), raw, 0)
	pipe.SAdd(ctx, sessionQuestionsKey(q.SessionCode), q.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("create question", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	raw, err := s.client.Get(ctx, questionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.Unavailable("get question", err)
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, sessionCode string) ([]domain.Question, error) {
	ids, err := s.client.SMembers(ctx, sessionQuestionsKey(sessionCode)).Result()
	if err != nil {
		return nil, domain.Unavailable("list questions", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = questionKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.Unavailable("list questions", err)
	}
	out := make([]domain.Question, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(str), &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return game.SortQuestions(out), nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, questionKey(q.ID), raw, 0).Result()
	if err != nil {
		return domain.Unavailable("update question", err)
	}
	if !ok {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, questionKey(id))
	pipe.SRem(ctx, sessionQuestionsKey(q.SessionCode), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("delete question", err)
	}
	return nil
}

func (s *Store) ReorderQuestions(ctx context.Context, sessionCode string, ids []string) error {
	updated := make([]domain.Question, 0, len(ids))
	for i, id := range ids {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		if q.SessionCode != sessionCode {
			return domain.ErrQuestionNotFound
		}
		q.Position = i
		updated = append(updated, q)
	}
	pipe := s.client.TxPipeline()
	for _, q := range updated {
		raw, err := json.Marshal(q)
		if err != nil {
			return err
		}
		pipe.Set(ctx, questionKey(q.ID), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("reorder questions", err)
	}
	return nil
}

func (s *Store) DeleteQuestions(ctx context.Context, sessionCode string) error {
	ids, err := s.client.SMembers(ctx, sessionQuestionsKey(sessionCode)).Result()
	if err != nil {
		return domain.Unavailable("delete questions", err)
	}
	keys := []string{sessionQuestionsKey(sessionCode)}
	for _, id := range ids {
		keys = append(keys, questionKey(id), currentKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return domain.Unavailable("delete questions", err)
	}
	return nil
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, participantKey(p.ID),
		"session", p.SessionCode,
		"name", p.Name,
		"join_code", p.JoinCode,
		"score", p.TotalScore,
		"joined_at", p.JoinedAt.UnixMilli(),
	)
	pipe.SAdd(ctx, sessionParticipantsKey(p.SessionCode), p.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("create participant", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	ps, err := s.loadParticipants(ctx, []string{id})
	if err != nil {
		return domain.Participant{}, err
	}
	if len(ps) == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return ps[0], nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionCode string) ([]domain.Participant, error) {
	ids, err := s.client.SMembers(ctx, sessionParticipantsKey(sessionCode)).Result()
	if err != nil {
		return nil, domain.Unavailable("list participants", err)
	}
	ps, err := s.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	return game.SortParticipants(ps), nil
}

func (s *Store) loadParticipants(ctx context.Context, ids []string) ([]domain.Participant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	type cmds struct {
		fields    *redis.MapStringStringCmd
		attempted *redis.StringSliceCmd
		correct   *redis.StringSliceCmd
	}
	pipe := s.client.Pipeline()
	all := make([]cmds, len(ids))
	for i, id := range ids {
		all[i] = cmds{
			fields:    pipe.HGetAll(ctx, participantKey(id)),
			attempted: pipe.SMembers(ctx, attemptedKey(id)),
			correct:   pipe.SMembers(ctx, correctKey(id)),
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, domain.Unavailable("load participants", err)
	}
	out := make([]domain.Participant, 0, len(ids))
	for i, c := range all {
		fields := c.fields.Val()
		if len(fields) == 0 {
			continue
		}
		score, _ := strconv.Atoi(fields["score"])
		out = append(out, domain.Participant{
			ID:          ids[i],
			SessionCode: fields["session"],
			Name:        fields["name"],
			JoinCode:    fields["join_code"],
			TotalScore:  score,
			Attempted:   c.attempted.Val(),
			Correct:     c.correct.Val(),
			JoinedAt:    parseMillis(fields["joined_at"]),
		})
	}
	return out, nil
}

func (s *Store) ApplyAnswer(ctx context.Context, participantID, questionID string, delta int, correct bool) (bool, int, error) {
	flag := "0"
	if correct {
		flag = "1"
	}
	keys := []string{attemptedKey(participantID), correctKey(participantID), participantKey(participantID)}
	res, err := applyAnswerScript.Run(ctx, s.client, keys, questionID, delta, flag).Int64Slice()
	if err != nil {
		return false, 0, domain.Unavailable("apply answer", err)
	}
	if len(res) != 2 {
		return false, 0, errors.New("apply answer: unexpected script reply")
	}
	if res[0] < 0 {
		return false, 0, domain.ErrParticipantNotFound
	}
	return res[0] == 1, int(res[1]), nil
}

func (s *Store) DeleteParticipants(ctx context.Context, sessionCode string) error {
	ids, err := s.client.SMembers(ctx, sessionParticipantsKey(sessionCode)).Result()
	if err != nil {
		return domain.Unavailable("delete participants", err)
	}
	keys := []string{sessionParticipantsKey(sessionCode)}
	for _, id := range ids {
		keys = append(keys, participantKey(id), attemptedKey(id), correctKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return domain.Unavailable("delete participants", err)
	}
	return nil
}

func (s *Store) CreateResponse(ctx context.Context, r domain.Response) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, responsesKey(r.ParticipantID), raw).Err(); err != nil {
		return domain.Unavailable("create response", err)
	}
	return nil
}

func (s *Store) ListResponses(ctx context.Context, participantID string) ([]domain.Response, error) {
	raws, err := s.client.LRange(ctx, responsesKey(participantID), 0, -1).Result()
	if err != nil {
		return nil, domain.Unavailable("list responses", err)
	}
	out := make([]domain.Response, 0, len(raws))
	for _, raw := range raws {
		var r domain.Response
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// DeleteResponses drops the audit lists of every participant still registered in the session.
func (s *Store) DeleteResponses(ctx context.Context, sessionCode string) error {
	ids, err := s.client.SMembers(ctx, sessionParticipantsKey(sessionCode)).Result()
	if err != nil {
		return domain.Unavailable("delete responses", err)
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = responsesKey(id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return domain.Unavailable("delete responses", err)
	}
	return nil
}

const sessionsKey = "quiz:sessions"

func sessionKey(code string) string             { return "quiz:session:" + code }
func sessionQuestionsKey(code string) string    { return "quiz:session:" + code + ":questions" }
func sessionParticipantsKey(code string) string { return "quiz:session:" + code + ":participants" }
func currentKey(questionID string) string       { return "quiz:current:" + questionID }
func questionKey(id string) string              { return "quiz:question:" + id }
func participantKey(id string) string           { return "quiz:participant:" + id }
func attemptedKey(id string) string             { return "quiz:participant:" + id + ":attempted" }
func correctKey(id string) string               { return "quiz:participant:" + id + ":correct" }
func responsesKey(participantID string) string  { return "quiz:responses:" + participantID }

func sessionFields(s domain.Session) map[string]interface{} {
	endsAt := ""
	if s.QuestionEndsAt != nil {
		endsAt = strconv.FormatInt(s.QuestionEndsAt.UnixMilli(), 10)
	}
	return map[string]interface{}{
		"title":      s.Title,
		"status":     string(s.Status),
		"current":    s.CurrentQuestionID,
		"position":   s.CurrentPosition,
		"ends_at":    endsAt,
		"created_at": s.CreatedAt.UnixMilli(),
	}
}

func parseSession(code string, fields map[string]string) domain.Session {
	s := domain.Session{
		Code:              code,
		Title:             fields["title"],
		Status:            domain.Status(fields["status"]),
		CurrentQuestionID: fields["current"],
		CreatedAt:         parseMillis(fields["created_at"]),
	}
	if pos, err := strconv.Atoi(fields["position"]); err == nil {
		s.CurrentPosition = pos
	}
	if raw := fields["ends_at"]; raw != "" {
		t := parseMillis(raw)
		s.QuestionEndsAt = &t
	}
	return s
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
