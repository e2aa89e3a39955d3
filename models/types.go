package models

import "time"

// Domain rows

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

type QuestionSet struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

type Question struct {
	ID           string    `db:"id" json:"id"`
	QuestionText string    `db:"question_text" json:"question_text"`
	SetID        string    `db:"set_id" json:"set"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

type Choice struct {
	ID         string    `db:"id" json:"id"`
	ChoiceText string    `db:"choice_text" json:"choice_text"`
	Votes      int       `db:"votes" json:"votes"`
	QuestionID string    `db:"question_id" json:"question"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`
}

type Room struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	OwnerID       string    `db:"owner_id" json:"-"`
	QuestionSetID string    `db:"question_set_id" json:"question_set"`
	Destroyed     bool      `db:"destroyed" json:"destroyed"`
	Public        bool      `db:"public" json:"public"`
	Latitude      *float64  `db:"latitude" json:"latitude"`
	Longitude     *float64  `db:"longitude" json:"longitude"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
	UpdatedAt     time.Time `db:"updated_at" json:"-"`
}

// Request types

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}

// Email carries an email address or a username, matching the original
// token endpoint contract.
type ObtainTokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChoiceInput struct {
	ChoiceText string `json:"choice_text" validate:"required"`
}

type QuestionInput struct {
	QuestionText string        `json:"question_text" validate:"required"`
	Choices      []ChoiceInput `json:"choice" validate:"dive"`
}

type CreateSetRequest struct {
	Name      string          `json:"name" validate:"required,max=50"`
	Questions []QuestionInput `json:"question" validate:"dive"`
}

type UpdateSetRequest struct {
	Name *string `json:"name" validate:"omitempty,max=50"`
}

type CreateQuestionRequest struct {
	QuestionText string        `json:"question_text" validate:"required"`
	Set          string        `json:"set"`
	Choices      []ChoiceInput `json:"choice" validate:"dive"`
}

type UpdateQuestionRequest struct {
	QuestionText *string `json:"question_text"`
}

type CreateChoiceRequest struct {
	ChoiceText string `json:"choice_text" validate:"required"`
	Question   string `json:"question"`
}

type UpdateChoiceRequest struct {
	ChoiceText *string `json:"choice_text"`
}

type CreateRoomRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description string   `json:"description"`
	QuestionSet string   `json:"question_set" validate:"required"`
	Public      *bool    `json:"public" validate:"required"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type UpdateRoomRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=50"`
	Description *string  `json:"description"`
	Public      *bool    `json:"public"`
	Destroyed   *bool    `json:"destroyed"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// Response types

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterResponse struct {
	UserResponse
	AuthToken string `json:"auth_token"`
}

type ObtainTokenResponse struct {
	AuthToken string `json:"auth_token"`
	Email     string `json:"email"`
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ChoiceResponse struct {
	ID         string `json:"id"`
	ChoiceText string `json:"choice_text"`
	Votes      int    `json:"votes"`
	Question   string `json:"question"`
}

type QuestionResponse struct {
	ID           string           `json:"id"`
	QuestionText string           `json:"question_text"`
	Set          string           `json:"set"`
	Choices      []ChoiceResponse `json:"choice"`
}

type SetSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"` // owner username
}

type SetDetail struct {
	SetSummary
	Questions []QuestionResponse `json:"question"`
}

type RoomSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"` // owner username
	QuestionSet string   `json:"question_set"`
	Destroyed   bool     `json:"destroyed"`
	Public      bool     `json:"public"`
	Response    int      `json:"response"` // member count
	DaysAgo     string   `json:"days_ago"` // humanized elapsed time
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type RoomDetail struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Owner             string    `json:"owner"`
	Destroyed         bool      `json:"destroyed"`
	Public            bool      `json:"public"`
	Response          int       `json:"response"`
	DaysAgo           string    `json:"days_ago"`
	QuestionSetDetail SetDetail `json:"question_set_detail"`
}

type ValidResponse struct {
	Valid bool `json:"valid"`
}

// InvalidResponse lists the questions with fewer than two choices.
type InvalidResponse struct {
	Valid     bool     `json:"valid"`
	Questions []string `json:"question"`
}

// BatchVoteResult is the per-item outcome of a batch vote. Failed items
// carry Error; successful ones carry the refreshed counter.
type BatchVoteResult struct {
	Choice string `json:"choice"`
	OK     bool   `json:"ok"`
	Votes  int    `json:"votes,omitempty"`
	Error  string `json:"error,omitempty"`
}
