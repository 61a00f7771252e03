package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/thriftdb/thriftdb/identity"
)

type api interface {
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, opts ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, in *iam.GetRoleInput, opts ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, opts ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	PutRolePolicy(ctx context.Context, in *iam.PutRolePolicyInput, opts ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
}

type Client struct {
	api api
}

func New(client *iam.Client) *Client {
	return &Client{api: client}
}

func NewWithAPI(a api) (*Client, error) {
	if a == nil {
		return nil, fmt.Errorf("iam api is required")
	}
	return &Client{api: a}, nil
}

func (c *Client) CreateRole(ctx context.Context, in identity.CreateRoleInput) (identity.Role, error) {
	input := &iam.CreateRoleInput{
		RoleName:                 aws.String(in.Name),
		AssumeRolePolicyDocument: aws.String(in.TrustPolicy),
	}
	if in.Path != "" {
		input.Path = aws.String(in.Path)
	}
	if in.Description != "" {
		input.Description = aws.String(in.Description)
	}
	out, err := c.api.CreateRole(ctx, input)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, identity.ErrRoleExists) {
			return identity.Role{}, identity.ErrRoleExists
		}
		return identity.Role{}, fmt.Errorf("create role %q: %w", in.Name, err)
	}
	return mapRole(out.Role), nil
}

func (c *Client) GetRole(ctx context.Context, name string) (identity.Role, error) {
	out, err := c.api.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, identity.ErrRoleNotFound) {
			return identity.Role{}, identity.ErrRoleNotFound
		}
		return identity.Role{}, fmt.Errorf("get role %q: %w", name, err)
	}
	return mapRole(out.Role), nil
}

func (c *Client) AttachManagedPolicy(ctx context.Context, roleName, policyARN string) error {
	if _, err := c.api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	}); err != nil {
		return fmt.Errorf("attach policy %q to role %q: %w", policyARN, roleName, err)
	}
	return nil
}

func (c *Client) PutInlinePolicy(ctx context.Context, roleName, policyName, document string) error {
	if _, err := c.api.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(document),
	}); err != nil {
		return fmt.Errorf("put inline policy %q on role %q: %w", policyName, roleName, err)
	}
	return nil
}

func mapRole(role *types.Role) identity.Role {
	if role == nil {
		return identity.Role{}
	}
	return identity.Role{Name: aws.ToString(role.RoleName), ARN: aws.ToString(role.Arn)}
}

func mapErr(err error) error {
	var exists *types.EntityAlreadyExistsException
	if errors.As(err, &exists) {
		return identity.ErrRoleExists
	}
	var missing *types.NoSuchEntityException
	if errors.As(err, &missing) {
		return identity.ErrRoleNotFound
	}
	return err
}

var _ identity.Roles = (*Client)(nil)
