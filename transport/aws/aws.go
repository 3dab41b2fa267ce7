// Package aws provides an SNS/SQS transport. Batches are published to an SNS
// topic per watch topic and consumed through a per-topic SQS queue.
package aws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "aws"

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
	maxTopicNameLength  = 256
)

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// TopicResolverFactory allows overriding the topic resolver creation for testing.
var TopicResolverFactory = func(accountID, region string) (sns.TopicResolver, error) {
	return sns.NewGenerateArnTopicResolver(accountID, region)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sns.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return sns.NewSubscriber(cfg, sqsCfg, logger)
}

func init() {
	transport.Register(TransportName, Build, transport.AWSCapabilities)
}

// Build creates an SNS/SQS transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if cfg.GetAWSRegion() == "" {
		return transport.Transport{}, errors.New("aws: region is required")
	}
	endpoint, err := endpointURL(cfg.GetAWSEndpoint())
	if err != nil {
		return transport.Transport{}, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to load AWS config", err, watermill.LogFields{"region": cfg.GetAWSRegion()})
		return transport.Transport{}, err
	}

	accountID := resolveAccountID(cfg.GetAWSAccountID(), endpoint != nil)
	logger.Info("Created AWS config", watermill.LogFields{
		"region":          awsCfg.Region,
		"account_id":      accountID,
		"custom_endpoint": endpoint != nil,
	})

	resolver, err := TopicResolverFactory(accountID, awsCfg.Region)
	if err != nil {
		return transport.Transport{}, fmt.Errorf("aws: topic resolver: %w", err)
	}
	resolver = sanitizingResolver{next: resolver}

	snsOpts, sqsOpts := endpointOptions(endpoint)

	publisher, err := PublisherFactory(sns.PublisherConfig{
		AWSConfig:     awsCfg,
		OptFns:        snsOpts,
		TopicResolver: resolver,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		sns.SubscriberConfig{
			AWSConfig:            awsCfg,
			OptFns:               snsOpts,
			TopicResolver:        resolver,
			GenerateSqsQueueName: queueNameFromTopic,
		},
		sqs.SubscriberConfig{
			AWSConfig: awsCfg,
			OptFns:    sqsOpts,
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg transport.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.GetAWSRegion()),
	}
	if key, secret := cfg.GetAWSAccessKeyID(), cfg.GetAWSSecretAccessKey(); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	// Loaders stubbed in tests may ignore options.
	awsCfg.Region = cfg.GetAWSRegion()
	return awsCfg, nil
}

// resolveAccountID falls back to the LocalStack account when a custom
// endpoint is used without a valid account id.
func resolveAccountID(raw string, customEndpoint bool) string {
	accountID := strings.Trim(raw, "\"' ")
	if customEndpoint && len(accountID) != awsAccountIDLength {
		return localstackAccountID
	}
	return accountID
}

func endpointURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("aws: parse endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("aws: endpoint %q must be an absolute URL", raw)
	}
	return parsed, nil
}

func endpointOptions(endpoint *url.URL) ([]func(*amazonsns.Options), []func(*amazonsqs.Options)) {
	if endpoint == nil {
		return nil, nil
	}
	override := smithyendpoints.Endpoint{URI: *endpoint}
	return []func(*amazonsns.Options){
			amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{Endpoint: override}),
		}, []func(*amazonsqs.Options){
			amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{Endpoint: override}),
		}
}

func queueNameFromTopic(_ context.Context, topicArn sns.TopicArn) (string, error) {
	topic, err := sns.ExtractTopicNameFromTopicArn(topicArn)
	if err != nil {
		return "", err
	}
	return string(topic), nil
}

var invalidTopicChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// TopicName maps a watch topic onto the SNS naming rules: letters, digits,
// hyphens and underscores, at most 256 characters.
func TopicName(topic string) string {
	name := invalidTopicChars.ReplaceAllString(topic, "_")
	if len(name) > maxTopicNameLength {
		name = name[:maxTopicNameLength]
	}
	return name
}

type sanitizingResolver struct {
	next sns.TopicResolver
}

func (r sanitizingResolver) ResolveTopic(ctx context.Context, topic string) (sns.TopicArn, error) {
	return r.next.ResolveTopic(ctx, TopicName(topic))
}
