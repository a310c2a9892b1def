package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const (
	givenNameAttribute  = "given_name"
	familyNameAttribute = "family_name"

	userLookupTimeout = 5 * time.Second
)

type User struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	Email      string              `json:"email"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Attributes map[string][]string `json:"attributes"`
}

// GivenName falls back to the given_name attribute when the first name is not
// set, as with users created through an external identity provider.
func (u *User) GivenName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.attribute(givenNameAttribute)
}

func (u *User) FamilyName() string {
	if u.LastName != "" {
		return u.LastName
	}
	return u.attribute(familyNameAttribute)
}

func (u *User) attribute(name string) string {
	if values := u.Attributes[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

type UserDirectory interface {
	Lookup(ctx context.Context, realm domain.RealmID, userID domain.SubjectID) (*User, error)
}

func NewUserDirectory(impl string, cfg *config.Config) (UserDirectory, error) {
	switch impl {
	case "http":
		directory := NewHttpUserDirectory(cfg.UserDirectoryUrl, cfg.UserDirectoryToken, &http.Client{Timeout: userLookupTimeout})
		if cfg.UserCacheSize > 0 {
			return NewCachingUserDirectory(directory, cfg.UserCacheSize, cfg.UserCacheTtl), nil
		}
		return directory, nil
	case "none":
		return nil, nil
	default:
		return nil, errors.New("Invalid UserDirectory impl requested")
	}
}

// HttpUserDirectory reads users from the identity server's admin REST API.
type HttpUserDirectory struct {
	baseUrl string
	token   string
	client  *http.Client
}

func NewHttpUserDirectory(baseUrl string, token string, client *http.Client) *HttpUserDirectory {
	return &HttpUserDirectory{baseUrl: strings.TrimSuffix(baseUrl, "/"), token: token, client: client}
}

func (d *HttpUserDirectory) Lookup(ctx context.Context, realm domain.RealmID, userID domain.SubjectID) (*User, error) {
	userUrl := fmt.Sprintf("%s/admin/realms/%s/users/%s", d.baseUrl, url.PathEscape(string(realm)), url.PathEscape(string(userID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userUrl, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrUserNotFound, realm, userID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("user lookup returned http status %d", resp.StatusCode)
	}

	user := &User{}
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("unable to parse user lookup response: %w", err)
	}

	return user, nil
}

// CachingUserDirectory keeps successful lookups for ttl.  Failures are not
// cached.
type CachingUserDirectory struct {
	directory UserDirectory
	cache     *expirable.LRU[string, *User]
}

func NewCachingUserDirectory(directory UserDirectory, size int, ttl time.Duration) *CachingUserDirectory {
	return &CachingUserDirectory{
		directory: directory,
		cache:     expirable.NewLRU[string, *User](size, nil, ttl),
	}
}

func (d *CachingUserDirectory) Lookup(ctx context.Context, realm domain.RealmID, userID domain.SubjectID) (*User, error) {
	key := string(realm) + "/" + string(userID)

	if user, found := d.cache.Get(key); found {
		metrics.userCacheHitCounter.Inc()
		return user, nil
	}

	metrics.userCacheMissCounter.Inc()

	user, err := d.directory.Lookup(ctx, realm, userID)
	if err != nil {
		return nil, err
	}

	d.cache.Add(key, user)

	logger.Log.WithFields(logrus.Fields{"realm": realm, "user_id": userID}).Debug("Cached user details")

	return user, nil
}
