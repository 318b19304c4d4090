// Package pubsub wraps the Cloud Pub/Sub v2 client used to carry shift
// exchange events from the outbox relay to the mailer worker.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
)

var errNotConnected = errors.New("pubsub client not initialized")

type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and checks that the exchange topic and subscription
// exist. Neither is created here; both are provisioned with the project.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}

	raw, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: raw, project: project, cfg: cfg, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":  project,
			"topic":        cfg.ExchangeTopic,
			"subscription": cfg.ExchangeSubscription,
		}), "pubsub connected")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping looks up the configured topic and subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	if topic := c.topicName(c.cfg.ExchangeTopic); topic != "" {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
		if err := lookupErr("topic", topic, err); err != nil {
			return err
		}
	}
	sub := c.subscriptionName(c.cfg.ExchangeSubscription)
	if sub == "" {
		return errors.New("pubsub subscription name is required")
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub})
	return lookupErr("subscription", sub, err)
}

func lookupErr(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %s does not exist", kind, name)
	default:
		return fmt.Errorf("look up %s %s: %w", kind, name, err)
	}
}

// Publisher returns the shared handle for topic. Handles batch in the
// background, so one is kept per topic and stopped on Close.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.topicName(topic)
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[name]; ok {
		return p
	}
	p := c.client.Publisher(name)
	c.publishers[name] = p
	return p
}

func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.subscriptionName(name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// ExchangeSubscription is the subscription the mailer worker drains.
func (c *Client) ExchangeSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.ExchangeSubscription)
}

// Close flushes every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) topicName(name string) string {
	return resourceName(c.project, "topics", name)
}

func (c *Client) subscriptionName(name string) string {
	return resourceName(c.project, "subscriptions", name)
}

// resourceName expands a short ID to projects/<project>/<kind>/<id>; full
// resource names pass through unchanged.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + kind + "/" + name
}
