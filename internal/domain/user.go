package domain

import "time"

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey"   dynamodbav:"id"               json:"id"`
	Email     string    `gorm:"uniqueIndex;not null"   dynamodbav:"email"            json:"email"`
	Username  string    `gorm:"not null"               dynamodbav:"username"         json:"username"`
	Name      *string   `dynamodbav:"name,omitempty"   json:"name"`
	Image     *string   `dynamodbav:"image,omitempty"  json:"image"`
	GoogleID  string    `gorm:"uniqueIndex;not null"   dynamodbav:"google_id"        json:"googleId"`
	CreatedAt time.Time `dynamodbav:"created_at"       json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at"       json:"updatedAt"`
}

// The system user owns products written without an authenticated caller.
const (
	SystemUserEmail    = "system@stocktracker.com"
	SystemUserName     = "system"
	SystemUserFullName = "System User"
	SystemUserGoogleID = "system-user"
)

func SystemUser() *User {
	name := SystemUserFullName
	return &User{
		Email:    SystemUserEmail,
		Username: SystemUserName,
		Name:     &name,
		GoogleID: SystemUserGoogleID,
	}
}

const msgUpsertRequired = "Email, username, and googleId are required"

// UpsertUserInput carries the claims an identity provider reports on sign-in.
type UpsertUserInput struct {
	Email    string  `json:"email"    validate:"required,email"`
	Username string  `json:"username" validate:"required"`
	Name     *string `json:"name"`
	Image    *string `json:"image"    validate:"omitempty,url"`
	GoogleID string  `json:"googleId" validate:"required"`
}

// Validate reports missing required claims with a single message, and
// malformed ones by field.
func (in UpsertUserInput) Validate() error {
	errs := Validate(in)
	if len(errs) == 0 {
		return nil
	}
	ve := NewValidationError(errs[0].Error())
	ve.Fields = errs.Fields()
	for _, fe := range errs {
		if fe.Tag() == "required" {
			ve.Message = msgUpsertRequired
			break
		}
	}
	return ve
}

// User builds the row to upsert. Id and timestamps are left to storage.
func (in UpsertUserInput) User() *User {
	return &User{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Image:    in.Image,
		GoogleID: in.GoogleID,
	}
}
