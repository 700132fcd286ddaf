package models

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims carried by session tokens.
type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token        string       `json:"token"`
	Username     string       `json:"username"`
	CurrentIndex int          `json:"current_index"`
	Complete     bool         `json:"complete"`
	FormDefaults FormDefaults `json:"form_defaults"`
}

// SubmitRequest is the body of POST /api/v1/rows/submit. DisplayedIndex and
// MessageID identify the row the client actually rendered; both must match
// the server's view before the label is committed.
type SubmitRequest struct {
	DisplayedIndex *int        `json:"displayed_index" binding:"required"`
	MessageID      int64       `json:"message_id" binding:"required"`
	Fields         LabelFields `json:"label"`
}

// SubmitResponse reports the accepted record and the new session position.
type SubmitResponse struct {
	Record       *LabelRecord `json:"record"`
	CurrentIndex int          `json:"current_index"`
	Complete     bool         `json:"complete"`
	FormDefaults FormDefaults `json:"form_defaults"`
}

// RowView is the presented content of the current dataset row.
type RowView struct {
	RowIndex  int      `json:"row_index"`
	MessageID int64    `json:"message_id"`
	Text      string   `json:"text"`
	Source    string   `json:"source"`
	PhotoURLs []string `json:"photo_urls,omitempty"`
}

// ProgressView reports how far a labeler is through the dataset.
type ProgressView struct {
	CurrentIndex int  `json:"current_index"`
	Total        int  `json:"total"`
	Percent      int  `json:"percent"`
	Complete     bool `json:"complete"`
}

// CurrentRowResponse is returned by GET /api/v1/rows/current. Row is nil
// once the dataset is exhausted ("End of data").
type CurrentRowResponse struct {
	Row          *RowView     `json:"row,omitempty"`
	Progress     ProgressView `json:"progress"`
	FormDefaults FormDefaults `json:"form_defaults"`
}
