package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Email notifies the previous lock holder by email through a shoutrrr
// service URL (typically smtp://). The message names the user who removed
// the lock and links to the version.
type Email struct {
	sender   *router.ServiceRouter
	siteName string
	baseURL  string
}

// EmailOption configures an Email notifier.
type EmailOption func(*Email)

// WithSiteName sets the site name used in the subject line.
func WithSiteName(name string) EmailOption {
	return func(e *Email) {
		e.siteName = name
	}
}

// WithBaseURL sets the base URL used to build the version preview link.
func WithBaseURL(base string) EmailOption {
	return func(e *Email) {
		e.baseURL = base
	}
}

// NewEmail returns an Email notifier sending through the given shoutrrr
// service URL.
func NewEmail(serviceURL string, opts ...EmailOption) (*Email, error) {
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, err
	}
	e := &Email{sender: sender, siteName: "verlock"}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// LockReleased implements Notifier.LockReleased. Nothing is sent when the
// holder removed their own lock.
func (e *Email) LockReleased(ctx context.Context, v *version.Version, lock *store.Lock, by version.User) error {
	if lock == nil || lock.CreatedBy.Is(by) {
		return nil
	}

	byName := by.Name
	if byName == "" {
		byName = by.ID
	}
	subject := fmt.Sprintf("[%s] %s - Unlocked", e.siteName, v.ID)
	body := fmt.Sprintf("The draft you were editing was unlocked by %s.", byName)
	if e.baseURL != "" {
		link, err := url.JoinPath(e.baseURL, "versions", v.ID)
		if err == nil {
			body = fmt.Sprintf("%s\n\nView the version: %s", body, link)
		}
	}

	params := types.Params{"title": subject}
	errs := e.sender.Send(body, &params)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
