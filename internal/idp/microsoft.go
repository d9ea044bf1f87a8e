package idp

import (
	"golang.org/x/oauth2/microsoft"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/emailutil"
)

const (
	microsoftUserInfoURL = "https://graph.microsoft.com/v1.0/me"
	defaultAzureTenant   = "common"
)

// microsoftUserResponse is the subset of the Graph /me resource we read.
// `mail` is empty for many personal and unlicensed accounts; userPrincipalName is the fallback.
type microsoftUserResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func newMicrosoftConnector(creds config.ProviderCredentials) *connector {
	tenant := firstNonEmpty(creds.Tenant, defaultAzureTenant)
	endpoint := microsoft.AzureADEndpoint(tenant)

	return &connector{
		cfg: ProviderConfig{
			Provider:              Microsoft,
			ClientID:              creds.ClientID,
			ClientSecret:          creds.ClientSecret,
			AuthorizationEndpoint: firstNonEmpty(creds.AuthURL, endpoint.AuthURL),
			TokenEndpoint:         firstNonEmpty(creds.TokenURL, endpoint.TokenURL),
			UserInfoEndpoint:      firstNonEmpty(creds.UserInfoURL, microsoftUserInfoURL),
			Scopes:                []string{"openid", "profile", "email", "User.Read"},
		},
		normalize: normalizeMicrosoft,
	}
}

func normalizeMicrosoft(body []byte) (*Identity, error) {
	var profile microsoftUserResponse
	if err := decodeProfile(body, &profile); err != nil {
		return nil, err
	}
	return &Identity{
		Subject: profile.ID,
		Email:   emailutil.Normalize(firstNonEmpty(profile.Mail, profile.UserPrincipalName)),
		Name:    profile.DisplayName,
	}, nil
}
