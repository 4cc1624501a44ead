package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/services"
	"github.com/dmitrijs2005/udinflow/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askRequired(prompt string) (string, error) {
	for {
		v, err := a.ask(prompt)
		if err != nil || v != "" {
			return v, err
		}
		fmt.Fprintln(a.out, "This field is required.")
	}
}

// Register verifies the email with a one-time code and then creates the
// account. The backend emails the initial password.
func (a *App) Register(ctx context.Context, args []string) error {
	if a.isLoggedIn() {
		return errors.New("already logged in, 'logout' first")
	}

	email, err := a.askRequired("Email")
	if err != nil {
		return err
	}
	ch, err := a.deps.Auth.SendEmailOTP(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A verification code was sent to %s.\n", email)
	code, err := a.askRequired("Verification code")
	if err != nil {
		return err
	}
	if err := a.deps.Auth.VerifyEmailOTP(ctx, ch.VerificationID, code); err != nil {
		return fmt.Errorf("email verification failed: %w", err)
	}

	info := models.UserInfo{Email: email}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"First name", &info.FirstName},
		{"Last name", &info.LastName},
		{"Phone number", &info.PhoneNumber},
		{"Address", &info.Address},
		{"State", &info.State},
		{"PIN code", &info.PinCode},
	}
	for _, f := range fields {
		if *f.dst, err = a.askRequired(f.prompt); err != nil {
			return err
		}
	}

	ok, err := Confirm(a.reader, "Do you accept the terms and conditions?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("registration needs the terms to be accepted")
	}

	u, err := a.deps.Auth.Register(ctx, info)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! Your password has been sent to %s; use 'login' to sign in.\n", u.FirstName, u.Email)
	return nil
}

func (a *App) Login(ctx context.Context, args []string) error {
	email, err := a.askRequired("Email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.deps.Auth.Login(ctx, email, string(password))
	if err != nil {
		a.log.Info(ctx, "login unsuccessful", "error", err)
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context, args []string) error {
	if err := a.deps.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// Forgot walks through email code verification and sets a new password.
func (a *App) Forgot(ctx context.Context, args []string) error {
	email, err := a.askRequired("Email")
	if err != nil {
		return err
	}
	ch, err := a.deps.Auth.ForgotPassword(ctx, email)
	if errors.Is(err, services.ErrOTPThrottled) {
		return fmt.Errorf("%w (%s)", err, services.OTPResendInterval)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A reset code was sent to %s.\n", email)

	code, err := a.askRequired("Reset code")
	if err != nil {
		return err
	}
	if err := a.deps.Auth.VerifyForgotPassword(ctx, ch.VerificationID, code); err != nil {
		return fmt.Errorf("code verification failed: %w", err)
	}

	password, err := getPassword(a.reader, "New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword(a.reader, "Repeat new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	if err := a.deps.Auth.ResetPassword(ctx, email, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated; use 'login' to sign in.")
	return nil
}
