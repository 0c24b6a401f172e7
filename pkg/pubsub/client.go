// Package pubsub wraps the Pub/Sub v2 client for the marketplace binaries.
// Each binary declares the topics and subscriptions it depends on, and
// readiness checks exactly those.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

// Resource is a topic or subscription a binary cannot run without.
type Resource struct {
	kind resourceKind
	name string
}

// Topic declares a topic the caller publishes to.
func Topic(name string) Resource { return Resource{kind: kindTopic, name: strings.TrimSpace(name)} }

// Subscription declares a subscription the caller receives from.
func Subscription(name string) Resource {
	return Resource{kind: kindSubscription, name: strings.TrimSpace(name)}
}

func (r Resource) String() string { return fmt.Sprintf("%s/%s", r.kind, r.name) }

// Client publishes staged marketplace events and hands out subscribers.
type Client struct {
	client  *pubsub.Client
	project string
	needs   []Resource

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub for the GCP project and fails when any of needs is
// missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger, needs ...Resource) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if err := validateNeeds(needs); err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     psClient,
		project:    project,
		needs:      needs,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_resources", c.resourceNames()), "pubsub client initialized")
	}
	return c, nil
}

func validateNeeds(needs []Resource) error {
	if len(needs) == 0 {
		return errors.New("at least one pubsub topic or subscription is required")
	}
	for _, need := range needs {
		if need.name == "" {
			return fmt.Errorf("pubsub %s name is required", strings.TrimSuffix(string(need.kind), "s"))
		}
	}
	return nil
}

// Ping confirms every declared resource still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	for _, need := range c.needs {
		var err error
		path := resourceName(c.project, need)
		switch need.kind {
		case kindTopic:
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: path})
		case kindSubscription:
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: path})
		}
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("pubsub %s does not exist", need)
		}
		if err != nil {
			return fmt.Errorf("checking pubsub %s: %w", need, err)
		}
	}
	return nil
}

// Subscriber returns the receive handle for a subscription id or path.
func (c *Client) Subscriber(name string) (*pubsub.Subscriber, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("pubsub client not initialized")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("pubsub subscription name is required")
	}
	return c.client.Subscriber(resourceName(c.project, Subscription(name))), nil
}

// Send publishes msg to topic and waits for the server ack. Messages that share
// an ordering key are delivered in publish order; a failed send resumes the
// key so the next attempt is not rejected.
func (c *Client) Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
	publisher, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	serverID, err := publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			publisher.ResumePublish(msg.OrderingKey)
		}
		return "", err
	}
	return serverID, nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("pubsub client not initialized")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("pubsub topic name is required")
	}
	path := resourceName(c.project, Topic(topic))

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[path]; ok {
		return p, nil
	}
	p := c.client.Publisher(path)
	p.EnableMessageOrdering = true
	c.publishers[path] = p
	return p, nil
}

// Close flushes pending publishes and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.publishers {
		p.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) resourceNames() []string {
	names := make([]string, 0, len(c.needs))
	for _, need := range c.needs {
		names = append(names, need.String())
	}
	return names
}

// resourceName expands a bare id to projects/<project>/<kind>/<id>. Full
// paths pass through unchanged.
func resourceName(project string, r Resource) string {
	if strings.HasPrefix(r.name, "projects/") && strings.Contains(r.name, "/"+string(r.kind)+"/") {
		return r.name
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, r.kind, r.name)
}
