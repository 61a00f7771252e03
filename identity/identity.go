package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrRoleNotFound = errors.New("identity: role not found")
	ErrRoleExists   = errors.New("identity: role already exists")
)

// CrawlerServicePrincipal is the service allowed to assume provisioned
// roles.
const CrawlerServicePrincipal = "glue.amazonaws.com"

// CrawlerManagedPolicyARN is attached to every provisioned role.
const CrawlerManagedPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSGlueServiceRole"

type Role struct {
	Name string
	ARN  string
}

type CreateRoleInput struct {
	Name        string
	Path        string
	Description string
	TrustPolicy string
}

type Roles interface {
	CreateRole(ctx context.Context, in CreateRoleInput) (Role, error)
	GetRole(ctx context.Context, name string) (Role, error)
	AttachManagedPolicy(ctx context.Context, roleName, policyARN string) error
	PutInlinePolicy(ctx context.Context, roleName, policyName, document string) error
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string            `json:"Sid,omitempty"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal,omitempty"`
	Action    any               `json:"Action"`
	Resource  []string          `json:"Resource,omitempty"`
}

// CrawlerTrustPolicy renders the assume-role document that lets the
// crawler service use a provisioned role.
func CrawlerTrustPolicy() (string, error) {
	return renderPolicy(policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "",
			Effect:    "Allow",
			Principal: map[string]string{"Service": CrawlerServicePrincipal},
			Action:    "sts:AssumeRole",
		}},
	})
}

// BucketAccessPolicy renders the inline document granting object
// read/write on everything under the named bucket.
func BucketAccessPolicy(bucket string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("bucket is required")
	}
	return renderPolicy(policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:   "Allow",
			Action:   []string{"s3:GetObject", "s3:PutObject"},
			Resource: []string{fmt.Sprintf("arn:aws:s3:::%s*", bucket)},
		}},
	})
}

func renderPolicy(doc policyDocument) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal policy document: %w", err)
	}
	return string(raw), nil
}

type EnsureRoleInput struct {
	Name        string
	Bucket      string
	Description string
	// InlinePolicyName names the bucket-access document on the role.
	InlinePolicyName string
}

// EnsureRole creates the service role with the crawler trust policy, the
// managed crawler policy, and an inline bucket-access policy. When the
// role already exists the existing role is returned and no policy is
// rewritten.
func EnsureRole(ctx context.Context, roles Roles, in EnsureRoleInput) (Role, error) {
	if roles == nil {
		return Role{}, fmt.Errorf("roles client is required")
	}
	if in.Name == "" {
		return Role{}, fmt.Errorf("role name is required")
	}
	if in.InlinePolicyName == "" {
		in.InlinePolicyName = "ThriftDBRolePolicy"
	}

	trust, err := CrawlerTrustPolicy()
	if err != nil {
		return Role{}, err
	}

	role, err := roles.CreateRole(ctx, CreateRoleInput{
		Name:        in.Name,
		Path:        "/service-role/",
		Description: in.Description,
		TrustPolicy: trust,
	})
	if err != nil {
		if errors.Is(err, ErrRoleExists) {
			return roles.GetRole(ctx, in.Name)
		}
		return Role{}, fmt.Errorf("create role %q: %w", in.Name, err)
	}

	if err := roles.AttachManagedPolicy(ctx, in.Name, CrawlerManagedPolicyARN); err != nil {
		return Role{}, fmt.Errorf("attach managed policy to %q: %w", in.Name, err)
	}

	access, err := BucketAccessPolicy(in.Bucket)
	if err != nil {
		return Role{}, err
	}
	if err := roles.PutInlinePolicy(ctx, in.Name, in.InlinePolicyName, access); err != nil {
		return Role{}, fmt.Errorf("put inline policy on %q: %w", in.Name, err)
	}

	return role, nil
}
