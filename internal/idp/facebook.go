package idp

import (
	"golang.org/x/oauth2/facebook"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/emailutil"
)

// Graph API only returns the fields that are asked for.
const facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"

type facebookUserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL          string `json:"url"`
			IsSilhouette bool   `json:"is_silhouette"`
		} `json:"data"`
	} `json:"picture"`
}

func newFacebookConnector(creds config.ProviderCredentials) *connector {
	return &connector{
		cfg: ProviderConfig{
			Provider:              Facebook,
			ClientID:              creds.ClientID,
			ClientSecret:          creds.ClientSecret,
			AuthorizationEndpoint: firstNonEmpty(creds.AuthURL, facebook.Endpoint.AuthURL),
			TokenEndpoint:         firstNonEmpty(creds.TokenURL, facebook.Endpoint.TokenURL),
			UserInfoEndpoint:      firstNonEmpty(creds.UserInfoURL, facebookUserInfoURL),
			Scopes:                []string{"email", "public_profile"},
		},
		normalize: normalizeFacebook,
	}
}

func normalizeFacebook(body []byte) (*Identity, error) {
	var profile facebookUserResponse
	if err := decodeProfile(body, &profile); err != nil {
		return nil, err
	}

	identity := &Identity{
		Subject: profile.ID,
		Email:   emailutil.Normalize(profile.Email),
		Name:    profile.Name,
	}
	// The default silhouette is not a real avatar
	if !profile.Picture.Data.IsSilhouette {
		identity.Picture = profile.Picture.Data.URL
	}
	return identity, nil
}
