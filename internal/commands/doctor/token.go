package doctor

import (
	"context"
	"fmt"

	"github.com/hay-kot/pulse/internal/provider/slackapi"
)

// Authenticator verifies a Slack token.
type Authenticator interface {
	AuthTest(ctx context.Context) (slackapi.Identity, error)
}

// TokenCheck verifies the Slack token is present and accepted.
type TokenCheck struct {
	token string
	auth  Authenticator
}

// NewTokenCheck creates a new token check.
func NewTokenCheck(token string, auth Authenticator) *TokenCheck {
	return &TokenCheck{token: token, auth: auth}
}

func (c *TokenCheck) Name() string {
	return "Slack"
}

func (c *TokenCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.token == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusFail,
			Detail: "no token configured (set SLACK_TOKEN or slack.token)",
		})
		return result
	}

	id, err := c.auth.AuthTest(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Token",
		Status: StatusPass,
		Detail: fmt.Sprintf("%s on %s", id.User, id.Team),
	})
	return result
}
