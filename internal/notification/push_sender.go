package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// PushSender delivers alerts to staff messaging services (ntfy, Telegram,
// email gateways and the rest of the shoutrrr catalog) via service URLs.
type PushSender struct {
	router *router.ServiceRouter
	names  []string
}

// NewPushSender creates the push channel sender from shoutrrr service URLs
// keyed by a human-readable name. Fails fast on unparsable URLs so a typo in
// the config surfaces at startup, not at first alert.
func NewPushSender(urls map[string]string) (*PushSender, error) {
	if len(urls) == 0 {
		return nil, errors.New("no push URLs configured")
	}

	names := make([]string, 0, len(urls))
	list := make([]string, 0, len(urls))
	for name, url := range urls {
		names = append(names, name)
		list = append(list, url)
	}

	sr, err := shoutrrr.CreateSender(list...)
	if err != nil {
		return nil, fmt.Errorf("failed to create push sender: %w", err)
	}
	return &PushSender{router: sr, names: names}, nil
}

// Name implements Sender.
func (s *PushSender) Name() string {
	return alerting.ChannelPush
}

// Send implements Sender. A partial failure (one of several services) is
// reported as an error carrying each failed service. Push services broadcast
// to whoever is subscribed, so the target roles only annotate the title.
func (s *PushSender) Send(_ context.Context, alert *entities.AlertInstance, targetRoles []string) error {
	title := fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Severity), alert.RuleCode)
	if len(targetRoles) > 0 {
		title = fmt.Sprintf("%s (%s)", title, strings.Join(targetRoles, ", "))
	}
	params := &types.Params{"title": title}

	var failures []string
	for _, err := range s.router.Send(alert.Message, params) {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("push delivery failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
