package domain

import "time"

// Status is the lifecycle state of a quiz session.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	// StatusCompleted is set when an admin stops a session early. Clients see it as FINISHED.
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no further questions can be played.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCompleted
}

// Public collapses admin-only states into what clients are shown.
func (s Status) Public() Status {
	if s == StatusCompleted {
		return StatusFinished
	}
	return s
}

// Session is one quiz instance. It is the single source of truth for which question is live.
type Session struct {
	Code              string     `json:"sessionCode"`
	Title             string     `json:"title"`
	Status            Status     `json:"status"`
	CurrentQuestionID string     `json:"currentQuestionId,omitempty"`
	// CurrentPosition is the position the current question had when it was armed. It lets play
	// continue in order if that question is deleted.
	CurrentPosition int        `json:"currentPosition,omitempty"`
	QuestionEndsAt    *time.Time `json:"questionEndsAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// HasCurrentQuestion reports whether a question pointer and deadline are armed.
func (s Session) HasCurrentQuestion() bool {
	return s.CurrentQuestionID != "" && s.QuestionEndsAt != nil
}

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string    `json:"_id"`
	SessionCode string    `json:"sessionCode"`
	Position    int       `json:"order"`
	Text        string    `json:"questionText"`
	Options     []Option  `json:"options"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Participant represents one player within one session and their accumulated score.
type Participant struct {
	ID          string    `json:"participantId"`
	SessionCode string    `json:"sessionCode"`
	Name        string    `json:"name"`
	JoinCode    string    `json:"uniqueCode"`
	TotalScore  int       `json:"totalScore"`
	Attempted   []string  `json:"attemptedQuestions"`
	Correct     []string  `json:"rightAnswers"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// HasAttempted reports whether questionID is in the attempted set.
func (p Participant) HasAttempted(questionID string) bool {
	return contains(p.Attempted, questionID)
}

// AnsweredCorrectly reports whether questionID is in the correct subset.
func (p Participant) AnsweredCorrectly(questionID string) bool {
	return contains(p.Correct, questionID)
}

// Response is the audit record of one submission. It is never read to compute scores.
type Response struct {
	ID             string    `json:"id"`
	SessionCode    string    `json:"sessionCode"`
	ParticipantID  string    `json:"participantId"`
	QuestionID     string    `json:"questionId"`
	SelectedOption string    `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	Points         int       `json:"marksObtained"`
	TimeLeft       float64   `json:"timeLeft"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RankEntry is one row of a leaderboard.
type RankEntry struct {
	ID       string     `json:"id"`
	Rank     int        `json:"rank"`
	Name     string     `json:"name"`
	Score    int        `json:"score"`
	JoinCode string     `json:"uniqueCode,omitempty"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
}

// ViewKind names what a client should currently be showing.
type ViewKind string

const (
	ViewIdle             ViewKind = "idle"
	ViewActiveQuestion   ViewKind = "active-question"
	ViewBreakLeaderboard ViewKind = "break-leaderboard"
	ViewGameOver         ViewKind = "game-over"
)

// PublicOption is an option stripped of its correctness flag.
type PublicOption struct {
	Text string `json:"text"`
}

// PublicQuestion is the sanitized question shown to players.
type PublicQuestion struct {
	ID      string         `json:"_id"`
	Text    string         `json:"questionText"`
	Options []PublicOption `json:"options"`
}

// LiveQuestion is the payload of the game:question event.
type LiveQuestion struct {
	Number   int            `json:"qNum"`
	Total    int            `json:"total"`
	Time     int            `json:"time"`
	Question PublicQuestion `json:"question"`
}

// GameOver is the payload of the game:over event.
type GameOver struct {
	Winners     []RankEntry `json:"winners"`
	Leaderboard []RankEntry `json:"leaderboard"`
}

// View is what the sync service tells a client to display. Exactly one payload is set per kind.
type View struct {
	Kind     ViewKind      `json:"kind"`
	Status   Status        `json:"status"`
	Question *LiveQuestion `json:"question,omitempty"`
	Ranks    []RankEntry   `json:"ranks,omitempty"`
	Over     *GameOver     `json:"over,omitempty"`
	Me       *RankEntry    `json:"me,omitempty"`
}

// AnswerSubmission is the scoring signal from a client. TimeLeft is client-reported and untrusted.
type AnswerSubmission struct {
	ParticipantID  string  `json:"participantId" validate:"required"`
	QuestionID     string  `json:"questionId" validate:"required"`
	SelectedOption string  `json:"selectedOption"`
	TimeLeft       float64 `json:"timeLeft"`
}

// Answer messages returned to submitters.
const (
	MessageCorrect         = "Correct"
	MessageWrong           = "Wrong"
	MessageAlreadyAnswered = "Already answered"
)

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Added      int    `json:"added"`
	Correct    bool   `json:"correct"`
	TotalScore int    `json:"totalScore"`
}

// JoinRequest registers a participant or resumes an existing one.
type JoinRequest struct {
	Name                  string `json:"name"`
	SessionCode           string `json:"sessionCode" validate:"required"`
	ExistingParticipantID string `json:"existingParticipantId"`
}

// JoinResult is returned by a successful join or rejoin.
type JoinResult struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	JoinCode      string `json:"uniqueCode"`
	SessionCode   string `json:"sessionCode"`
	SessionTitle  string `json:"sessionTitle"`
	SessionStatus Status `json:"sessionStatus"`
	TotalScore    *int   `json:"totalScore,omitempty"`
	Rejoined      bool   `json:"rejoined"`
}

// ParticipantStats is the per-player summary shown at game end.
type ParticipantStats struct {
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Timeout    int `json:"timeout"`
	TotalScore int `json:"totalScore"`
}

// Review statuses for game history rows.
const (
	ReviewCorrect = "CORRECT"
	ReviewWrong   = "WRONG"
	ReviewTimeout = "TIMEOUT"
	NoAttempt     = "No Attempt"
)

// HistoryItem is one question in a participant's post-game review.
type HistoryItem struct {
	QuestionID    string `json:"questionId"`
	QuestionText  string `json:"questionText"`
	CorrectAnswer string `json:"correctAnswer"`
	UserSelected  string `json:"userSelected"`
	Status        string `json:"status"`
}

// RevealedAnswer is the payload of the game:result event.
type RevealedAnswer struct {
	QuestionID    string `json:"questionId"`
	CorrectAnswer string `json:"correctAnswer"`
}

// Stats aggregates live connection counts for the admin dashboard.
type Stats struct {
	ActiveUsers   int            `json:"activeUsers"`
	SessionCounts map[string]int `json:"sessionCounts"`
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
