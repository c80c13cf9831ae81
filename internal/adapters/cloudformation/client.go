// Package cloudformation looks up deployed infrastructure identifiers from
// stack outputs. It backs the configuration resolver's second tier.
package cloudformation

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

// API is the subset of the CloudFormation client the adapter needs.
type API interface {
	DescribeStacks(ctx context.Context, params *cfn.DescribeStacksInput, optFns ...func(*cfn.Options)) (*cfn.DescribeStacksOutput, error)
}

// Client reads stack outputs with per-stack caching: a stack's outputs are
// fetched once and reused for every key resolved from it during startup.
type Client struct {
	api   API
	cache map[string]map[string]string
	log   *logger.Logger
}

// New creates a stack output client from an AWS SDK config.
func New(awsCfg aws.Config) *Client {
	return NewWithAPI(cfn.NewFromConfig(awsCfg))
}

// NewWithAPI creates a client over an explicit API implementation.
func NewWithAPI(api API) *Client {
	return &Client{
		api:   api,
		cache: make(map[string]map[string]string),
		log:   logger.Get().With("component", "cloudformation"),
	}
}

// StackOutput returns the value of outputKey on stackName. A missing stack
// and a missing output are distinct conditions: the former wraps
// ErrStackNotFound, the latter ErrOutputNotFound.
func (c *Client) StackOutput(ctx context.Context, stackName, outputKey string) (string, error) {
	outputs, ok := c.cache[stackName]
	if !ok {
		fetched, err := c.fetchOutputs(ctx, stackName)
		if err != nil {
			return "", err
		}
		c.cache[stackName] = fetched
		outputs = fetched
	}

	if val, ok := outputs[outputKey]; ok {
		return val, nil
	}

	return "", errors.Wrapf(errors.ErrOutputNotFound, "stack %s has no output %s", stackName, outputKey)
}

func (c *Client) fetchOutputs(ctx context.Context, stackName string) (map[string]string, error) {
	resp, err := c.api.DescribeStacks(ctx, &cfn.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		// The API reports a nonexistent stack as a validation error rather
		// than a typed not-found; treat any describe failure as stack-level.
		return nil, errors.Wrapf(errors.ErrStackNotFound, "describe stack %s: %v", stackName, err)
	}

	if len(resp.Stacks) == 0 {
		return nil, errors.Wrapf(errors.ErrStackNotFound, "stack %s", stackName)
	}

	outputs := make(map[string]string)
	for _, out := range resp.Stacks[0].Outputs {
		if out.OutputKey != nil && out.OutputValue != nil {
			outputs[*out.OutputKey] = *out.OutputValue
		}
	}

	c.log.Debugf("Fetched %d outputs from stack %s", len(outputs), stackName)
	return outputs, nil
}
