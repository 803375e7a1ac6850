package models

// User identifies a participant. It is created at sign-in and does not
// change for the lifetime of a session.
type User struct {
	ID     string `dynamodbav:"id" json:"id"`
	Name   string `dynamodbav:"name" json:"name"`
	Email  string `dynamodbav:"email" json:"email"`
	Avatar string `dynamodbav:"avatar,omitempty" json:"avatar,omitempty"`
}
