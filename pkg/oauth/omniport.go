package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"golang.org/x/oauth2"
)

var ErrNoEmail = errors.New("no email found in provider response")

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Provider exchanges an authorization code for the caller's identity.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ProviderProfile, error)
}

// Omniport is the channeli Omniport OAuth2 provider.
type Omniport struct {
	baseURL string
	conf    *oauth2.Config
	client  *http.Client
}

type omniportUser struct {
	Person struct {
		FullName  string `json:"fullName"`
		ShortName string `json:"shortName"`
	} `json:"person"`
	Student struct {
		EnrolmentNumber string `json:"enrolmentNumber"`
	} `json:"student"`
	ContactInformation struct {
		InstituteWebmailAddress string `json:"instituteWebmailAddress"`
		EmailAddress            string `json:"emailAddress"`
	} `json:"contactInformation"`
}

func NewOmniport(cfg Config) *Omniport {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Omniport{
		baseURL: base,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorise/",
				TokenURL:  base + "/open_auth/token/",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *Omniport) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state)
}

func (o *Omniport) Exchange(ctx context.Context, code string) (*models.ProviderProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)

	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/open_auth/get_user_data/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("user data request returned %d: %s", resp.StatusCode, string(body))
	}

	var u omniportUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user data: %w", err)
	}
	return u.profile()
}

func (u *omniportUser) profile() (*models.ProviderProfile, error) {
	email := u.ContactInformation.InstituteWebmailAddress
	if email == "" {
		email = u.ContactInformation.EmailAddress
	}
	if email == "" {
		return nil, ErrNoEmail
	}
	return &models.ProviderProfile{
		Email:        email,
		FullName:     u.Person.FullName,
		ShortName:    u.Person.ShortName,
		EnrollmentNo: u.Student.EnrolmentNumber,
	}, nil
}
