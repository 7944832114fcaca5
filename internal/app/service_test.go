package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

type recordedEvent struct {
	room    string
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(room, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{room: room, event: event, payload: payload})
}

func (b *recordingBroadcaster) last(event string) (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].event == event {
			return b.events[i], true
		}
	}
	return recordedEvent{}, false
}

type fixture struct {
	svc   *app.QuizService
	store *memory.Store
	clock *clockwork.FakeClock
	bc    *recordingBroadcaster
	qids  []string
}

// newFixture builds session QUIZ1 with three questions whose correct answers are "4", "Paris", "Blue".
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		clock: clockwork.NewFakeClockAt(time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)),
		bc:    &recordingBroadcaster{},
	}
	f.svc = app.NewQuizService(app.RepositoriesFrom(f.store), app.DefaultConfig(),
		app.WithClock(f.clock), app.WithBroadcaster(f.bc))

	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "quiz1", "Demo"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, q := range []struct {
		text    string
		options []string
		correct int
	}{
		{"What is 2 + 2?", []string{"3", "4", "5"}, 1},
		{"Capital of France?", []string{"Paris", "Rome"}, 0},
		{"Colour of the sky?", []string{"Green", "Blue"}, 1},
	} {
		opts := make([]domain.Option, len(q.options))
		for i, text := range q.options {
			opts[i] = domain.Option{Text: text, IsCorrect: i == q.correct}
		}
		created, err := f.svc.AddQuestion(ctx, "QUIZ1", q.text, opts)
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		f.qids = append(f.qids, created.ID)
		f.clock.Advance(time.Millisecond)
	}
	return f
}

func (f *fixture) join(t *testing.T, name string) string {
	t.Helper()
	res, err := f.svc.Join(context.Background(), domain.JoinRequest{Name: name, SessionCode: "quiz1"})
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	f.clock.Advance(time.Millisecond)
	return res.ParticipantID
}

func TestQuizFlowScoresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")

	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{
		ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: " 4 ", TimeLeft: 10,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct || res.Added != 17 || res.TotalScore != 17 || res.Message != domain.MessageCorrect {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := f.bc.last(app.EventLeaderboardUpdate); !ok {
		t.Fatalf("expected leaderboard update broadcast")
	}

	again, err := f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{
		ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4", TimeLeft: 15,
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.Message != domain.MessageAlreadyAnswered || again.Added != 0 || again.TotalScore != 17 {
		t.Fatalf("unexpected resubmit result %+v", again)
	}
}

func TestConcurrentSubmitCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{
				ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4", TimeLeft: 15,
			})
		}()
	}
	wg.Wait()

	p, _ := f.store.GetParticipant(ctx, alice)
	if p.TotalScore != 20 || len(p.Attempted) != 1 {
		t.Fatalf("expected a single credit of 20, got %+v", p)
	}
	if rs, _ := f.store.ListResponses(ctx, alice); len(rs) != 1 {
		t.Fatalf("expected one response row, got %d", len(rs))
	}
}

func TestSubmitRejectedOutsideLiveWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")

	_, err := f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4"})
	if !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected not active before start, got %v", err)
	}

	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[1], SelectedOption: "Paris"})
	if !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected not active for a future question, got %v", err)
	}

	f.clock.Advance(15 * time.Second)
	_, err = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4"})
	if !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected not active at the deadline, got %v", err)
	}
	if domain.KindOf(err) != domain.KindStateConflict {
		t.Fatalf("expected a state conflict")
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{QuestionID: f.qids[0]})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: "ghost", QuestionID: f.qids[0], SelectedOption: "4"})
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestWrongAnswerScoresZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "5", TimeLeft: 14})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Correct || res.Added != 0 || res.Message != domain.MessageWrong {
		t.Fatalf("unexpected result %+v", res)
	}
}

type failingResponses struct {
	*memory.Store
}

func (failingResponses) CreateResponse(context.Context, domain.Response) error {
	return domain.Unavailable("create response", errors.New("disk full"))
}

func TestResponseWriteFailureKeepsScore(t *testing.T) {
	store := memory.NewStore()
	clock := clockwork.NewFakeClock()
	repos := app.RepositoriesFrom(store)
	repos.Responses = failingResponses{store}
	svc := app.NewQuizService(repos, app.DefaultConfig(), app.WithClock(clock))
	ctx := context.Background()

	_, _ = svc.CreateSession(ctx, "QUIZ1", "")
	q, err := svc.AddQuestion(ctx, "QUIZ1", "2 + 2?", []domain.Option{{Text: "4", IsCorrect: true}, {Text: "5"}})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	joined, _ := svc.Join(ctx, domain.JoinRequest{Name: "Alice", SessionCode: "QUIZ1"})
	if _, err := svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: joined.ParticipantID, QuestionID: q.ID, SelectedOption: "4", TimeLeft: 0})
	if err != nil {
		t.Fatalf("expected audit failure to be swallowed, got %v", err)
	}
	if res.TotalScore != 10 {
		t.Fatalf("expected score 10, got %d", res.TotalScore)
	}
}

func TestJoinAndRejoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Join(ctx, domain.JoinRequest{Name: "  Alice  ", SessionCode: " quiz1 "})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if first.Name != "Alice" || first.SessionCode != "QUIZ1" || len(first.JoinCode) != 6 || first.Rejoined {
		t.Fatalf("unexpected join result %+v", first)
	}

	again, err := f.svc.Join(ctx, domain.JoinRequest{SessionCode: "QUIZ1", ExistingParticipantID: first.ParticipantID})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !again.Rejoined || again.ParticipantID != first.ParticipantID || again.TotalScore == nil || *again.TotalScore != 0 {
		t.Fatalf("unexpected rejoin result %+v", again)
	}

	if _, err := f.svc.Join(ctx, domain.JoinRequest{Name: "A", SessionCode: "QUIZ1"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected short name to be rejected, got %v", err)
	}
	if _, err := f.svc.Join(ctx, domain.JoinRequest{Name: "Bob", SessionCode: "NOPE"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected unknown session, got %v", err)
	}

	if _, err := f.svc.StopSession(ctx, "QUIZ1", ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := f.svc.Join(ctx, domain.JoinRequest{Name: "Bob", SessionCode: "QUIZ1"}); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}

func TestRejoinWithForeignIDCreatesParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "OTHER", "Other"); err != nil {
		t.Fatalf("create: %v", err)
	}
	other, _ := f.svc.Join(ctx, domain.JoinRequest{Name: "Alice", SessionCode: "OTHER"})

	res, err := f.svc.Join(ctx, domain.JoinRequest{Name: "Alice", SessionCode: "QUIZ1", ExistingParticipantID: other.ParticipantID})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res.Rejoined || res.ParticipantID == other.ParticipantID {
		t.Fatalf("expected a fresh participant, got %+v", res)
	}
}

func TestSyncFollowsSessionPhases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	bob := f.join(t, "Bob")

	view, err := f.svc.Sync(ctx, "quiz1", alice)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if view.Kind != domain.ViewIdle || view.Status != domain.StatusWaiting {
		t.Fatalf("expected idle view, got %+v", view)
	}

	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(5500 * time.Millisecond)
	view, _ = f.svc.Sync(ctx, "QUIZ1", alice)
	if view.Kind != domain.ViewActiveQuestion || view.Question.Number != 1 || view.Question.Total != 3 || view.Question.Time != 10 {
		t.Fatalf("unexpected active view %+v", view.Question)
	}
	if view.Question.Question.ID != f.qids[0] || len(view.Question.Question.Options) != 3 {
		t.Fatalf("unexpected question payload %+v", view.Question.Question)
	}

	_, _ = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: bob, QuestionID: f.qids[0], SelectedOption: "4", TimeLeft: 9})

	f.clock.Advance(24 * time.Hour)
	view, _ = f.svc.Sync(ctx, "QUIZ1", alice)
	if view.Kind != domain.ViewBreakLeaderboard {
		t.Fatalf("expected break to persist, got %s", view.Kind)
	}
	if len(view.Ranks) != 2 || view.Ranks[0].ID != bob || view.Ranks[0].Score != 16 {
		t.Fatalf("unexpected ranks %+v", view.Ranks)
	}
	if view.Me == nil || view.Me.ID != alice || view.Me.Rank != 2 {
		t.Fatalf("unexpected me %+v", view.Me)
	}

	if _, err := f.svc.AdvanceQuestion(ctx, "QUIZ1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	view, _ = f.svc.Sync(ctx, "QUIZ1", "")
	if view.Kind != domain.ViewActiveQuestion || view.Question.Number != 2 || view.Question.Time != 15 {
		t.Fatalf("unexpected second question %+v", view.Question)
	}
	if ev, ok := f.bc.last(app.EventQuestion); !ok || ev.room != "QUIZ1" {
		t.Fatalf("expected question broadcast, got %+v", ev)
	}

	_, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1")
	session, err := f.svc.AdvanceQuestion(ctx, "QUIZ1")
	if err != nil {
		t.Fatalf("advance past last: %v", err)
	}
	if session.Status != domain.StatusFinished || session.HasCurrentQuestion() {
		t.Fatalf("expected finished session, got %+v", session)
	}
	view, _ = f.svc.Sync(ctx, "QUIZ1", bob)
	if view.Kind != domain.ViewGameOver || len(view.Over.Winners) != 2 || view.Over.Winners[0].ID != bob {
		t.Fatalf("unexpected game over view %+v", view.Over)
	}
	if _, ok := f.bc.last(app.EventOver); !ok {
		t.Fatalf("expected game over broadcast")
	}
}

func TestSyncIsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	_, _ = f.svc.StartSession(ctx, "QUIZ1")

	a, _ := f.svc.Sync(ctx, "QUIZ1", alice)
	b, _ := f.svc.Sync(ctx, "QUIZ1", alice)
	if a.Kind != b.Kind || a.Question.Time != b.Question.Time || a.Question.Number != b.Question.Number {
		t.Fatalf("sync is not repeatable: %+v vs %+v", a, b)
	}
	p, _ := f.store.GetParticipant(ctx, alice)
	if p.TotalScore != 0 || len(p.Attempted) != 0 {
		t.Fatalf("sync mutated participant %+v", p)
	}
}

func TestSyncUnknownSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Sync(context.Background(), "NOPE", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStopReportsFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.StartSession(ctx, "QUIZ1")

	session, err := f.svc.StopSession(ctx, "QUIZ1", "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if session.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED stored, got %s", session.Status)
	}
	view, _ := f.svc.Sync(ctx, "QUIZ1", "")
	if view.Kind != domain.ViewGameOver || view.Status != domain.StatusFinished {
		t.Fatalf("expected game over shown as FINISHED, got %+v", view)
	}
	if _, err := f.svc.AdvanceQuestion(ctx, "QUIZ1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := f.svc.StopSession(ctx, "QUIZ1", "ACTIVE"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestRevealOnlyAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.StartSession(ctx, "QUIZ1")

	if _, err := f.svc.RevealResults(ctx, "QUIZ1"); !errors.Is(err, domain.ErrQuestionStillLive) {
		t.Fatalf("expected still live, got %v", err)
	}
	f.clock.Advance(16 * time.Second)
	revealed, err := f.svc.RevealResults(ctx, "QUIZ1")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if revealed.CorrectAnswer != "4" || revealed.QuestionID != f.qids[0] {
		t.Fatalf("unexpected reveal %+v", revealed)
	}
	if _, ok := f.bc.last(app.EventResult); !ok {
		t.Fatalf("expected result broadcast")
	}
	if _, ok := f.bc.last(app.EventRanks); !ok {
		t.Fatalf("expected ranks broadcast")
	}
}

func TestDeletingLiveQuestionKeepsPlayOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.StartSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.svc.DeleteQuestion(ctx, f.qids[0]); err != nil {
		t.Fatalf("delete live question: %v", err)
	}
	view, err := f.svc.Sync(ctx, "QUIZ1", "")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if view.Kind != domain.ViewBreakLeaderboard {
		t.Fatalf("expected break view while the deleted question is current, got %s", view.Kind)
	}

	session, err := f.svc.AdvanceQuestion(ctx, "QUIZ1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if session.Status != domain.StatusActive || session.CurrentQuestionID != f.qids[1] {
		t.Fatalf("expected second question to be armed, got %+v", session)
	}
	view, _ = f.svc.Sync(ctx, "QUIZ1", "")
	if view.Question == nil || view.Question.Number != 1 || view.Question.Total != 2 {
		t.Fatalf("expected question 1 of 2, got %+v", view.Question)
	}

	if session, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1"); session.CurrentQuestionID != f.qids[2] {
		t.Fatalf("expected third question next, got %+v", session)
	}
	if session, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1"); session.Status != domain.StatusFinished {
		t.Fatalf("expected finish after the last question, got %s", session.Status)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	svc := app.NewQuizService(app.RepositoriesFrom(memory.NewStore()), app.DefaultConfig())
	ctx := context.Background()
	_, _ = svc.CreateSession(ctx, "EMPTY", "Empty")
	if _, err := svc.StartSession(ctx, "EMPTY"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.CreateSession(ctx, "empty", "Again"); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected duplicate code, got %v", err)
	}
	if _, err := svc.CreateSession(ctx, "bad code!", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid code, got %v", err)
	}
}

func TestAddQuestionRequiresOneCorrect(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddQuestion(context.Background(), "QUIZ1", "Pick", []domain.Option{
		{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReorderChangesPlayOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := []string{f.qids[2], f.qids[0], f.qids[1]}
	qs, err := f.svc.ReorderQuestions(ctx, "QUIZ1", order)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if qs[0].ID != f.qids[2] {
		t.Fatalf("unexpected order")
	}
	if _, err := f.svc.ReorderQuestions(ctx, "QUIZ1", []string{f.qids[0], f.qids[0], f.qids[1]}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate ids to be rejected, got %v", err)
	}

	_, _ = f.svc.StartSession(ctx, "QUIZ1")
	view, _ := f.svc.Sync(ctx, "QUIZ1", "")
	if view.Question.Question.ID != f.qids[2] || view.Question.Number != 1 {
		t.Fatalf("expected reordered first question, got %+v", view.Question)
	}
}

func TestResetWipesPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	_, _ = f.svc.StartSession(ctx, "QUIZ1")
	_, _ = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4", TimeLeft: 15})

	session, err := f.svc.ResetSession(ctx, "QUIZ1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if session.Status != domain.StatusWaiting || session.HasCurrentQuestion() {
		t.Fatalf("unexpected session after reset %+v", session)
	}
	if _, err := f.store.GetParticipant(ctx, alice); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant wiped, got %v", err)
	}
	if qs, _ := f.store.ListQuestions(ctx, "QUIZ1"); len(qs) != 3 {
		t.Fatalf("expected questions kept, got %d", len(qs))
	}
	if _, ok := f.bc.last(app.EventForceStop); !ok {
		t.Fatalf("expected force stop broadcast")
	}
}

func TestStatsAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.join(t, "Alice")
	_, _ = f.svc.StartSession(ctx, "QUIZ1")

	_, _ = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[0], SelectedOption: "4", TimeLeft: 15})
	_, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1")
	_, _ = f.svc.SubmitAnswer(ctx, domain.AnswerSubmission{ParticipantID: alice, QuestionID: f.qids[1], SelectedOption: "Rome", TimeLeft: 3})
	_, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1")
	_, _ = f.svc.AdvanceQuestion(ctx, "QUIZ1")

	stats, err := f.svc.ParticipantStats(ctx, alice)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (domain.ParticipantStats{Correct: 1, Wrong: 1, Timeout: 1, TotalScore: 20}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	history, err := f.svc.GameHistory(ctx, alice)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(history))
	}
	if history[0].Status != domain.ReviewCorrect || history[0].UserSelected != "4" {
		t.Fatalf("unexpected first row %+v", history[0])
	}
	if history[1].Status != domain.ReviewWrong || history[1].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected second row %+v", history[1])
	}
	if history[2].Status != domain.ReviewTimeout || history[2].UserSelected != domain.NoAttempt {
		t.Fatalf("unexpected third row %+v", history[2])
	}

	board, err := f.svc.Leaderboard(ctx, "quiz1")
	if err != nil || len(board) != 1 || board[0].Score != 20 {
		t.Fatalf("unexpected leaderboard %+v %v", board, err)
	}
}

func TestDeleteSessionRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Alice")
	if err := f.svc.DeleteSession(ctx, "QUIZ1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetSession(ctx, "QUIZ1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if qs, _ := f.store.ListQuestions(ctx, "QUIZ1"); len(qs) != 0 {
		t.Fatalf("expected questions removed")
	}
}

func TestConfigValidateRejectsUnsupportedPacing(t *testing.T) {
	cfg := app.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Pacing = "auto"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected auto pacing to be rejected")
	}

	cfg = app.DefaultConfig()
	cfg.Rules.Budget = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero question time to be rejected")
	}

	cfg = app.DefaultConfig()
	cfg.Pacing = ""
	svc := app.NewQuizService(app.RepositoriesFrom(memory.NewStore()), cfg)
	if got := svc.Config().Pacing; got != "manual" {
		t.Fatalf("expected empty pacing to default to manual, got %q", got)
	}
}
