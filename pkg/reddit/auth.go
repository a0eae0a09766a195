package reddit

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"mineralscraper/pkg/config"
)

// AuthMode is how the client authenticates against Reddit
type AuthMode string

const (
	// AuthModePassword uses a script app and account credentials
	AuthModePassword AuthMode = "password"
	// AuthModeApplication uses application-only OAuth
	AuthModeApplication AuthMode = "application"
	// AuthModeAnonymous reads the public JSON endpoints
	AuthModeAnonymous AuthMode = "anonymous"
)

const installedClientGrant = "https://oauth.reddit.com/grants/installed_client"

// ModeFor picks the authentication mode the credentials allow
func ModeFor(rc config.RedditConfig) AuthMode {
	switch {
	case rc.ClientID == "":
		return AuthModeAnonymous
	case rc.Username != "" && rc.Password != "":
		return AuthModePassword
	default:
		return AuthModeApplication
	}
}

// newTokenSource returns a cached, self-refreshing token source for the
// credentials in rc. Token requests go through hc so they carry the User-Agent.
func newTokenSource(ctx context.Context, rc config.RedditConfig, hc *http.Client) oauth2.TokenSource {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)

	if ModeFor(rc) == AuthModePassword {
		conf := &oauth2.Config{
			ClientID:     rc.ClientID,
			ClientSecret: rc.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  rc.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		// Password grants come without a refresh token, so expiry means
		// running the grant again.
		return oauth2.ReuseTokenSource(nil, &passwordSource{
			ctx:      ctx,
			conf:     conf,
			username: rc.Username,
			password: rc.Password,
		})
	}

	cc := &clientcredentials.Config{
		ClientID:     rc.ClientID,
		ClientSecret: rc.ClientSecret,
		TokenURL:     rc.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if rc.ClientSecret == "" {
		// Installed apps have no secret and use their own grant type
		cc.EndpointParams = url.Values{
			"grant_type": {installedClientGrant},
			"device_id":  {"DO_NOT_TRACK_THIS_DEVICE"},
		}
	}
	return cc.TokenSource(ctx)
}

type passwordSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// userAgentTransport stamps every request with the configured User-Agent.
// Reddit throttles requests carrying generic agents.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
