package domain

// The types below form the snapshot every connection receives after each
// mutation. Clients replace their local view wholesale; snapshots are never
// deltas, which keeps reconnection trivial.

// OptionView is an option as exposed to clients. Correctness is only populated
// once the question is in review.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

// QuestionView is the current question stripped or enriched depending on phase.
type QuestionView struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	TimeLimit   int          `json:"timeLimit"`
	Options     []OptionView `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
	Media       string       `json:"media,omitempty"`
}

// ParticipantView is a roster entry in the snapshot.
type ParticipantView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	Answered  bool   `json:"answered"`
}

// LeaderboardEntry is one row of the ranked scoreboard.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// Award reports points credited to one participant for the reviewed question.
type Award struct {
	ParticipantID string `json:"participantId"`
	OptionID      string `json:"optionId"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
}

// SessionState is the complete authoritative state broadcast to every connection.
type SessionState struct {
	SessionID            string             `json:"sessionId"`
	SessionCode          string             `json:"sessionCode"`
	Status               Phase              `json:"status"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	TimeRemaining        int                `json:"timeRemaining"`
	TotalQuestions       int                `json:"totalQuestions"`
	CurrentQuestion      *QuestionView      `json:"currentQuestion"`
	Participants         []ParticipantView  `json:"participants"`
	ConnectedCount       int                `json:"connectedCount"`
	AnswersReceived      int                `json:"answersReceived"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard,omitempty"`
	LastAwards           []Award            `json:"lastAwards,omitempty"`
	Settings             Settings           `json:"settings"`
}
