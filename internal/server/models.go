package server

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// TopicsResponse lists the topic tags the classifier can assign.
type TopicsResponse struct {
	Topics []string `json:"topics"`
}

// CommentRequest posts a comment on a bill.
type CommentRequest struct {
	Content string `json:"content"`
}

// VoteRequest casts or changes a vote on a bill.
type VoteRequest struct {
	Value string `json:"value"`
}

// VoteCountsResponse summarises votes on a bill.
type VoteCountsResponse struct {
	BillID string `json:"bill_id"`
	Up     int    `json:"up"`
	Down   int    `json:"down"`
}

// WatchRequest adds a bill to the watchlist.
type WatchRequest struct {
	BillID string `json:"bill_id"`
}

// AlertRequest subscribes the user to a topic tag.
type AlertRequest struct {
	Topic string `json:"topic"`
}
