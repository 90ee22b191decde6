package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// TopicAuthorizer answers the message broker's external auth callbacks. The
// broker presents a platform token as the username; everything else is
// checked against the token's bound project.
type TopicAuthorizer struct {
	tokens   ports.TokenService
	projects ports.ProjectRepository
	vhost    string
	exchange string
	log      zerolog.Logger
}

func NewTopicAuthorizer(
	tokens ports.TokenService,
	projects ports.ProjectRepository,
	vhost, exchange string,
	log zerolog.Logger,
) *TopicAuthorizer {
	return &TopicAuthorizer{
		tokens:   tokens,
		projects: projects,
		vhost:    vhost,
		exchange: exchange,
		log:      log,
	}
}

// AuthorizeUser validates a broker login. The password field is overloaded
// as a device-group name; the connection is allowed only when the token's
// project actually registers that group.
func (a *TopicAuthorizer) AuthorizeUser(ctx context.Context, username, password string) bool {
	project, err := a.project(ctx, username)
	if err != nil {
		return false
	}
	if !project.HasDeviceGroup(password) {
		a.log.Debug().
			Str("project_id", project.ID).
			Str("device_group", password).
			Msg("broker login for unregistered device group")
		return false
	}
	return true
}

// AuthorizeVhost allows only the deployment's configured vhost.
func (a *TopicAuthorizer) AuthorizeVhost(ctx context.Context, username, vhost string) bool {
	if vhost != a.vhost {
		return false
	}
	_, err := a.project(ctx, username)
	return err == nil
}

// AuthorizeResource allows reading the configured topic exchange and writing
// to server-named exclusive queues; everything else is denied.
func (a *TopicAuthorizer) AuthorizeResource(ctx context.Context, username, resource, name, permission string) bool {
	if _, err := a.project(ctx, username); err != nil {
		return false
	}
	switch resource {
	case "exchange":
		return name == a.exchange && permission == "read"
	case "queue":
		return strings.HasPrefix(name, "amq.gen-") && permission == "write"
	default:
		return false
	}
}

// AuthorizeTopic allows binding/consuming a routing key only when it belongs
// to the project's device-group namespace {project_id}.{device_group}.
func (a *TopicAuthorizer) AuthorizeTopic(ctx context.Context, username, routingKey string) bool {
	project, err := a.project(ctx, username)
	if err != nil {
		return false
	}
	for _, key := range project.RoutingKeys() {
		if key == routingKey {
			return true
		}
	}
	return false
}

// project verifies the presented token and resolves its bound project.
func (a *TopicAuthorizer) project(ctx context.Context, token string) (*domain.Project, error) {
	identity, err := a.tokens.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if identity.ProjectID == "" {
		return nil, domain.ErrTokenInvalid
	}
	return a.projects.FindByID(ctx, identity.ProjectID)
}
