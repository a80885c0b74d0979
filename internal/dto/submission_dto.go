package dto

// SubmissionRequest is a team's code upload for one question.
type SubmissionRequest struct {
	QuestionNum  int    `json:"question_num" form:"question_num" validate:"required,gt=0"`
	FileContents string `json:"file_contents" form:"file_contents" validate:"required"`
}

// SubmissionStoredResponse acknowledges a stored submission.
type SubmissionStoredResponse struct {
	TeamName    string `json:"team_name"`
	QuestionNum int    `json:"question_num"`
	SizeBytes   int    `json:"size_bytes"`
}

// ConsoleLog is the human readable transcript of a feedback run.
type ConsoleLog struct {
	ConsoleLog string `json:"console_log"`
}

// ScoredTest is one officially graded test.
type ScoredTest struct {
	TestName   string `json:"test_name"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"max_score"`
	ConsoleLog string `json:"console_log"`
}
