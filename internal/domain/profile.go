package domain

import "time"

// Profile is owned by the user with the same id and upserted by id.
type Profile struct {
	ID                string             `json:"id" dynamodbav:"id"`
	DisplayName       string             `json:"display_name" dynamodbav:"display_name"`
	PhoneNumber       string             `json:"phone_number" dynamodbav:"phone_number"`
	PhoneVerified     bool               `json:"phone_verified" dynamodbav:"phone_verified"`
	EmailVerified     bool               `json:"email_verified" dynamodbav:"email_verified"`
	SecurityQuestions []SecurityQuestion `json:"security_questions" dynamodbav:"security_questions"`
	UpdatedAt         time.Time          `json:"updated_at" dynamodbav:"updated_at"`
}

// SecurityQuestion keeps the answer only as a salted hash of its normalized form.
type SecurityQuestion struct {
	Question   string `json:"question" dynamodbav:"question"`
	AnswerHash string `json:"-" dynamodbav:"answer_hash"`
	AnswerSalt string `json:"-" dynamodbav:"answer_salt"`
}

type SecurityQuestionInput struct {
	Question string `json:"question" validate:"required,max=200"`
	Answer   string `json:"answer" validate:"required,max=200"`
}

type ProfileInput struct {
	DisplayName       *string                 `json:"display_name" validate:"omitempty,max=80"`
	PhoneNumber       *string                 `json:"phone_number"`
	SecurityQuestions []SecurityQuestionInput `json:"security_questions" validate:"omitempty,max=5,dive"`
}

type VerifyAnswerRequest struct {
	Email         string `json:"email" validate:"required,email"`
	QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
	Answer        string `json:"answer" validate:"required"`
}
