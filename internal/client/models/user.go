package models

import "time"

// UserInfo is what a customer enters when registering.
type UserInfo struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber"`
	Address       string `json:"address"`
	State         string `json:"state"`
	PinCode       string `json:"pinCode"`
	TermsAccepted bool   `json:"termsAccepted"`
}

// ToTransactionUser converts to the snake_case shape embedded in transactions.
func (u UserInfo) ToTransactionUser() TransactionUser {
	return TransactionUser{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.PhoneNumber,
		Address:   u.Address,
		State:     u.State,
		PinCode:   u.PinCode,
	}
}

type User struct {
	ID string `json:"_id"`
	UserInfo
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// OTPChallenge identifies an emailed one-time code awaiting verification.
type OTPChallenge struct {
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}
