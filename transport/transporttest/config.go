// Package transporttest provides a static transport.Config for builder tests.
package transporttest

import "github.com/drblury/resourcewatch/transport"

// Config is a plain value implementation of transport.Config.
type Config struct {
	PubSubSystem       string
	KafkaBrokers       []string
	KafkaClientID      string
	KafkaConsumerGroup string
	RabbitMQURL        string
	NATSURL            string
	NATSClientName     string
	HTTPServerAddress  string
	HTTPPublisherURL   string
	IOFile             string
	SQLiteFile         string
	AWSRegion          string
	AWSAccountID       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
}

var _ transport.Config = (*Config)(nil)

func (c *Config) GetPubSubSystem() string       { return c.PubSubSystem }
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaClientID() string      { return c.KafkaClientID }
func (c *Config) GetKafkaConsumerGroup() string { return c.KafkaConsumerGroup }
func (c *Config) GetRabbitMQURL() string        { return c.RabbitMQURL }
func (c *Config) GetNATSURL() string            { return c.NATSURL }
func (c *Config) GetNATSClientName() string     { return c.NATSClientName }
func (c *Config) GetHTTPServerAddress() string  { return c.HTTPServerAddress }
func (c *Config) GetHTTPPublisherURL() string   { return c.HTTPPublisherURL }
func (c *Config) GetIOFile() string             { return c.IOFile }
func (c *Config) GetSQLiteFile() string         { return c.SQLiteFile }
func (c *Config) GetAWSRegion() string          { return c.AWSRegion }
func (c *Config) GetAWSAccountID() string       { return c.AWSAccountID }
func (c *Config) GetAWSAccessKeyID() string     { return c.AWSAccessKeyID }
func (c *Config) GetAWSSecretAccessKey() string { return c.AWSSecretAccessKey }
func (c *Config) GetAWSEndpoint() string        { return c.AWSEndpoint }
