package domain

// Phase is the lifecycle stage of a session. Phases only move forward
// (WAITING -> ACTIVE -> REVIEW -> ACTIVE | FINISHED) except on reset.
type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhaseActive   Phase = "ACTIVE"
	PhaseReview   Phase = "REVIEW"
	PhaseFinished Phase = "FINISHED"
)

// Points systems supported by the scoring policy.
const (
	PointsStandard = "standard"
	PointsSimple   = "simple"
	PointsNone     = "no_points"
)

// Leaderboard frequencies controlling how much ranking each REVIEW reveals.
const (
	LeaderboardEveryRound = "every_round"
	LeaderboardEndOnly    = "end_only"
	LeaderboardTop3       = "top_3"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question. At most one option carries the correct flag;
// a question with none is simply unanswerable for points.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	TimeLimit   int      `json:"timeLimit"` // seconds; falls back to the quiz default if zero
	Points      int      `json:"points"`    // defaults to 1000 if zero
	Explanation string   `json:"explanation,omitempty"`
	MediaURL    string   `json:"mediaUrl,omitempty"`
}

// Quiz is an ordered, immutable collection of questions. Sessions hold their own
// snapshot of it; edits to the source quiz never reach a running session.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	DefaultTimeLimit int        `json:"defaultTimeLimit"`
	Questions        []Question `json:"questions"`
}

// Settings is the application configuration captured into a session at creation.
type Settings struct {
	PointsSystem         string `json:"pointsSystem"`
	LeaderboardFrequency string `json:"leaderboardFrequency"`
	DefaultTimerSeconds  int    `json:"defaultTimerSeconds"`
	EnableTestMode       bool   `json:"enableTestMode"`
	RequirePlayerNames   bool   `json:"requirePlayerNames"`
	OrganizationName     string `json:"organizationName"`
}

// DefaultSettings returns the settings used when no backing store is configured.
func DefaultSettings() Settings {
	return Settings{
		PointsSystem:         PointsStandard,
		LeaderboardFrequency: LeaderboardEveryRound,
		DefaultTimerSeconds:  30,
	}
}

// TimeLimitFor resolves a question's effective time limit in seconds.
func (q Quiz) TimeLimitFor(idx int) int {
	limit := q.Questions[idx].TimeLimit
	if limit <= 0 {
		limit = q.DefaultTimeLimit
	}
	if limit <= 0 {
		limit = 30
	}
	return limit
}

// PointsFor resolves a question's point value.
func (q Quiz) PointsFor(idx int) int {
	points := q.Questions[idx].Points
	if points <= 0 {
		points = 1000
	}
	return points
}

// Validate rejects quiz content the session engine cannot run: no questions,
// questions without options, or more than one option flagged correct. Zero
// correct options is allowed; such a question is wrong for everyone.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrInvalidQuiz
	}
	for _, question := range q.Questions {
		if len(question.Options) == 0 {
			return ErrInvalidQuiz
		}
		correct := 0
		for _, opt := range question.Options {
			if opt.Correct {
				correct++
			}
		}
		if correct > 1 {
			return ErrInvalidQuiz
		}
	}
	return nil
}
