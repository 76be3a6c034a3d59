package authsdk

import (
	"context"
	"net/http"
)

// ForgotPassword asks for a reset token to be sent to email. The answer is
// the same whether or not the account exists.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password/forgot", "", ForgotPasswordRequest{
		Email: email,
	})
	if err != nil {
		return nil, err
	}

	var out ForgotPasswordResponse
	if err := decodeJSON(resp, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckResetToken reports whether token is still redeemable without
// spending it.
func (c *SDKClient) CheckResetToken(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password/reset/check", "", ResetCheckRequest{
		Token: token,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ResetPassword redeems token. Every session of the account ends on success.
func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password/reset", "", ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
