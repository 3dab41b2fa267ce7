package aws

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/transport"
	"github.com/drblury/resourcewatch/transport/transporttest"
)

type mockPublisher struct{ closed bool }

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }

type captured struct {
	accountID string
	region    string
	loadOpts  int
	pub       sns.PublisherConfig
	sub       sns.SubscriberConfig
	sqs       sqs.SubscriberConfig
	publisher *mockPublisher
}

func stubAWS(t *testing.T) *captured {
	t.Helper()
	origLoader, origResolver := DefaultConfigLoader, TopicResolverFactory
	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		DefaultConfigLoader, TopicResolverFactory = origLoader, origResolver
		PublisherFactory, SubscriberFactory = origPub, origSub
	})

	c := &captured{publisher: &mockPublisher{}}
	DefaultConfigLoader = func(_ context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		c.loadOpts = len(opts)
		return aws.Config{}, nil
	}
	TopicResolverFactory = func(accountID, region string) (sns.TopicResolver, error) {
		c.accountID, c.region = accountID, region
		return sns.NewGenerateArnTopicResolver(accountID, region)
	}
	PublisherFactory = func(cfg sns.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		c.pub = cfg
		return c.publisher, nil
	}
	SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		c.sub, c.sqs = cfg, sqsCfg
		return &mockSubscriber{}, nil
	}
	return c
}

func TestRegisteredOnImport(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	assert.Equal(t, int64(262144), transport.GetCapabilities(TransportName).MaxMessageSize)
}

func TestBuild(t *testing.T) {
	c := stubAWS(t)

	cfg := &transporttest.Config{AWSRegion: "eu-central-1", AWSAccountID: "123456789012"}
	tr, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, c.publisher, tr.Publisher)

	assert.Equal(t, "123456789012", c.accountID)
	assert.Equal(t, "eu-central-1", c.region)
	assert.Equal(t, 1, c.loadOpts)
	assert.Equal(t, "eu-central-1", c.pub.AWSConfig.Region)
	assert.Nil(t, c.pub.OptFns)
	assert.Nil(t, c.sqs.OptFns)
}

func TestBuild_StaticCredentials(t *testing.T) {
	c := stubAWS(t)

	cfg := &transporttest.Config{
		AWSRegion:          "us-east-1",
		AWSAccountID:       "123456789012",
		AWSAccessKeyID:     "AKIA",
		AWSSecretAccessKey: "secret",
	}
	_, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 2, c.loadOpts)
}

func TestBuild_LocalStack(t *testing.T) {
	c := stubAWS(t)

	cfg := &transporttest.Config{AWSRegion: "us-east-1", AWSEndpoint: "http://localhost:4566"}
	_, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)

	assert.Equal(t, localstackAccountID, c.accountID)
	assert.Len(t, c.pub.OptFns, 1)
	assert.Len(t, c.sub.OptFns, 1)
	assert.Len(t, c.sqs.OptFns, 1)
}

func TestBuild_Errors(t *testing.T) {
	stubAWS(t)

	_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.Error(t, err)

	_, err = Build(context.Background(), &transporttest.Config{AWSRegion: "us-east-1", AWSEndpoint: "localhost"}, watermill.NopLogger{})
	assert.Error(t, err)
}

func TestBuild_SubscriberErrorClosesPublisher(t *testing.T) {
	c := stubAWS(t)
	SubscriberFactory = func(sns.SubscriberConfig, sqs.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
		return nil, assert.AnError
	}

	_, err := Build(context.Background(), &transporttest.Config{AWSRegion: "us-east-1", AWSAccountID: "123456789012"}, watermill.NopLogger{})
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, c.publisher.closed)
}

func TestResolveAccountID(t *testing.T) {
	assert.Equal(t, "123456789012", resolveAccountID(`"123456789012"`, false))
	assert.Equal(t, "", resolveAccountID("", false))
	assert.Equal(t, localstackAccountID, resolveAccountID("", true))
	assert.Equal(t, localstackAccountID, resolveAccountID("123", true))
	assert.Equal(t, "123456789012", resolveAccountID("123456789012", true))
}

func TestTopicName(t *testing.T) {
	assert.Equal(t, "resourcewatch_console-message", TopicName("resourcewatch.console-message"))
	assert.Equal(t, "a_b_c", TopicName("a/b c"))
	assert.Len(t, TopicName(string(make([]byte, 300))), maxTopicNameLength)
}

func TestSanitizingResolver(t *testing.T) {
	inner, err := sns.NewGenerateArnTopicResolver("123456789012", "us-east-1")
	require.NoError(t, err)

	arn, err := sanitizingResolver{next: inner}.ResolveTopic(context.Background(), "resourcewatch.console-message")
	require.NoError(t, err)
	assert.Equal(t, sns.TopicArn("arn:aws:sns:us-east-1:123456789012:resourcewatch_console-message"), arn)
}

func TestQueueNameFromTopic(t *testing.T) {
	name, err := queueNameFromTopic(context.Background(), "arn:aws:sns:us-east-1:123456789012:console")
	require.NoError(t, err)
	assert.Equal(t, "console", name)
}
