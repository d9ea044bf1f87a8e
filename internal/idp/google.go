package idp

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/emailutil"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// googleUserInfoResponse represents Google's v2 userinfo response.
// Note: Google uses `id` here, not the OIDC `sub`.
type googleUserInfoResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// newGoogleConnector builds the Google connector. Google gets access_type=offline and
// prompt=consent so that every login re-consents and returns a refresh token.
func newGoogleConnector(creds config.ProviderCredentials) *connector {
	return &connector{
		cfg: ProviderConfig{
			Provider:              Google,
			ClientID:              creds.ClientID,
			ClientSecret:          creds.ClientSecret,
			AuthorizationEndpoint: firstNonEmpty(creds.AuthURL, google.Endpoint.AuthURL),
			TokenEndpoint:         firstNonEmpty(creds.TokenURL, google.Endpoint.TokenURL),
			UserInfoEndpoint:      firstNonEmpty(creds.UserInfoURL, googleUserInfoURL),
			Scopes:                []string{"openid", "email", "profile"},
		},
		authOpts: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
		},
		normalize: normalizeGoogle,
	}
}

func normalizeGoogle(body []byte) (*Identity, error) {
	var profile googleUserInfoResponse
	if err := decodeProfile(body, &profile); err != nil {
		return nil, err
	}
	return &Identity{
		Subject: profile.ID,
		Email:   emailutil.Normalize(profile.Email),
		Name:    profile.Name,
		Picture: profile.Picture,
	}, nil
}
