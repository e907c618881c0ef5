package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
)

// ErrInstanceNotFound means the provider returned no reservation for the
// configured instance ID.
var ErrInstanceNotFound = errors.New("instance not found")

// ClientConfig configures the EC2 client.
type ClientConfig struct {
	// Region is the AWS region.
	Region string

	// AccessKeyID / SecretAccessKey are optional static credentials. When
	// empty the default credential chain (IAM role, env, profile) is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Endpoint is a custom endpoint URL (for testing with LocalStack).
	Endpoint string

	// PollInterval is the delay between state polls while waiting for a
	// stop or start transition to settle.
	PollInterval time.Duration
}

// Client wraps the EC2 API calls the lifecycle controller needs.
type Client struct {
	ec2          *ec2.Client
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewClient builds an EC2 client from the given configuration.
func NewClient(ctx context.Context, cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*ec2.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *ec2.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}

	return &Client{
		ec2:          ec2.NewFromConfig(awsCfg, clientOpts...),
		pollInterval: poll,
		logger:       logger.With().Str("component", "cloud").Logger(),
	}, nil
}

// DescribeInstance reads the current type, power state and addresses of the
// instance.
func (c *Client) DescribeInstance(ctx context.Context, id string) (InstanceInfo, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return InstanceInfo{}, fmt.Errorf("describe instance %s: %w", id, err)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return InstanceInfo{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	inst := out.Reservations[0].Instances[0]
	info := InstanceInfo{
		ID:    id,
		Type:  string(inst.InstanceType),
		State: StateUnknown,
	}
	if inst.State != nil {
		info.State = string(inst.State.Name)
	}
	if inst.PublicIpAddress != nil {
		info.PublicIP = *inst.PublicIpAddress
	}
	if inst.PrivateIpAddress != nil {
		info.PrivateIP = *inst.PrivateIpAddress
	}
	return info, nil
}

// ModifyInstanceType changes the instance type. The instance must already be
// stopped; the provider rejects the call otherwise.
func (c *Client) ModifyInstanceType(ctx context.Context, id, instanceType string) error {
	_, err := c.ec2.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId:   aws.String(id),
		InstanceType: &ec2types.AttributeValue{Value: aws.String(instanceType)},
	})
	if err != nil {
		return fmt.Errorf("modify instance %s to %s: %w", id, instanceType, err)
	}
	return nil
}

// StopInstance issues a stop request.
func (c *Client) StopInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", id, err)
	}
	return nil
}

// StartInstance issues a start request.
func (c *Client) StartInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("start instance %s: %w", id, err)
	}
	return nil
}

// WaitUntilStopped polls until the instance reports stopped, bounded by
// timeout.
func (c *Client) WaitUntilStopped(ctx context.Context, id string, timeout time.Duration) error {
	waiter := ec2.NewInstanceStoppedWaiter(c.ec2, func(o *ec2.InstanceStoppedWaiterOptions) {
		o.MinDelay = c.pollInterval
		o.MaxDelay = c.pollInterval
	})
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}}, timeout); err != nil {
		return fmt.Errorf("wait for instance %s to stop: %w", id, err)
	}
	return nil
}

// WaitUntilRunning polls until the instance reports running, bounded by
// timeout.
func (c *Client) WaitUntilRunning(ctx context.Context, id string, timeout time.Duration) error {
	waiter := ec2.NewInstanceRunningWaiter(c.ec2, func(o *ec2.InstanceRunningWaiterOptions) {
		o.MinDelay = c.pollInterval
		o.MaxDelay = c.pollInterval
	})
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}}, timeout); err != nil {
		return fmt.Errorf("wait for instance %s to run: %w", id, err)
	}
	return nil
}
