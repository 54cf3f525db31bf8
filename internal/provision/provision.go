// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	ddbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tfback/tfback/internal/backend"
	"github.com/tfback/tfback/internal/log"
)

// The substrate's fixed shape: a string hash key named LockID and on-demand
// billing, matching what the provisioning client expects of a lock table.
const (
	LockTableHashKey = "LockID"

	bucketWaitTimeout = 2 * time.Minute
	tableWaitTimeout  = 5 * time.Minute
)

// S3API is the slice of the S3 surface the provisioner needs.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3v2.CreateBucketInput, optFns ...func(*s3v2.Options)) (*s3v2.CreateBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3v2.HeadBucketInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3v2.PutBucketVersioningInput, optFns ...func(*s3v2.Options)) (*s3v2.PutBucketVersioningOutput, error)
	PutBucketEncryption(ctx context.Context, params *s3v2.PutBucketEncryptionInput, optFns ...func(*s3v2.Options)) (*s3v2.PutBucketEncryptionOutput, error)
	PutPublicAccessBlock(ctx context.Context, params *s3v2.PutPublicAccessBlockInput, optFns ...func(*s3v2.Options)) (*s3v2.PutPublicAccessBlockOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3v2.GetBucketVersioningInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketVersioningOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3v2.GetBucketEncryptionInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketEncryptionOutput, error)
}

// DynamoAPI is the slice of the DynamoDB surface the provisioner needs.
type DynamoAPI interface {
	CreateTable(ctx context.Context, params *ddbv2.CreateTableInput, optFns ...func(*ddbv2.Options)) (*ddbv2.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *ddbv2.DescribeTableInput, optFns ...func(*ddbv2.Options)) (*ddbv2.DescribeTableOutput, error)
}

// Result reports the identifiers of the provisioned substrate.
type Result struct {
	Bucket string
	Table  string
}

// Ensure provisions the bucket and, when configured, the lock table. It is
// idempotent: resources that already exist under this account are left as
// they are, though bucket versioning, encryption, and public access blocks
// are always (re)applied.
func Ensure(ctx context.Context, s3api S3API, ddbapi DynamoAPI, ptr backend.Pointer) (*Result, error) {
	if ptr.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if err := EnsureBucket(ctx, s3api, ptr); err != nil {
		return nil, err
	}

	if ptr.Table != "" {
		if err := EnsureTable(ctx, ddbapi, ptr.Table); err != nil {
			return nil, err
		}
	} else {
		log.Warnf("no lock table configured; state locking will be disabled")
	}

	return &Result{Bucket: ptr.Bucket, Table: ptr.Table}, nil
}

// EnsureBucket creates the state bucket and applies its required posture:
// versioning enabled, server-side encryption by default, and all public
// access blocked.
func EnsureBucket(ctx context.Context, api S3API, ptr backend.Pointer) error {
	input := &s3v2.CreateBucketInput{
		Bucket: awsv2.String(ptr.Bucket),
	}
	// us-east-1 is the one region CreateBucket refuses a location constraint
	// for.
	if ptr.Region != "" && ptr.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(ptr.Region),
		}
	}

	if _, err := api.CreateBucket(ctx, input); err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if !errors.As(err, &owned) {
			return fmt.Errorf("failed to create bucket %s: %w", ptr.Bucket, err)
		}
		log.Debugf("bucket %s already owned by this account", ptr.Bucket)
	}

	waiter := s3v2.NewBucketExistsWaiter(api)
	if err := waiter.Wait(ctx, &s3v2.HeadBucketInput{Bucket: awsv2.String(ptr.Bucket)}, bucketWaitTimeout); err != nil {
		return fmt.Errorf("timed out waiting for bucket %s: %w", ptr.Bucket, err)
	}

	if _, err := api.PutBucketVersioning(ctx, &s3v2.PutBucketVersioningInput{
		Bucket: awsv2.String(ptr.Bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	}); err != nil {
		return fmt.Errorf("failed to enable versioning on %s: %w", ptr.Bucket, err)
	}

	sse := &s3types.ServerSideEncryptionByDefault{
		SSEAlgorithm: s3types.ServerSideEncryptionAes256,
	}
	if ptr.KmsKeyID != "" {
		sse.SSEAlgorithm = s3types.ServerSideEncryptionAwsKms
		sse.KMSMasterKeyID = awsv2.String(ptr.KmsKeyID)
	}
	if _, err := api.PutBucketEncryption(ctx, &s3v2.PutBucketEncryptionInput{
		Bucket: awsv2.String(ptr.Bucket),
		ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
			Rules: []s3types.ServerSideEncryptionRule{
				{ApplyServerSideEncryptionByDefault: sse},
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to configure encryption on %s: %w", ptr.Bucket, err)
	}

	if _, err := api.PutPublicAccessBlock(ctx, &s3v2.PutPublicAccessBlockInput{
		Bucket: awsv2.String(ptr.Bucket),
		PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       awsv2.Bool(true),
			BlockPublicPolicy:     awsv2.Bool(true),
			IgnorePublicAcls:      awsv2.Bool(true),
			RestrictPublicBuckets: awsv2.Bool(true),
		},
	}); err != nil {
		return fmt.Errorf("failed to block public access on %s: %w", ptr.Bucket, err)
	}

	log.Infof("bucket %s ready: versioned, encrypted, private", ptr.Bucket)
	return nil
}

// EnsureTable creates the lock table and waits until it is ACTIVE. An
// existing table is accepted as-is; its key schema is verified by CheckTable
// callers rather than mutated here.
func EnsureTable(ctx context.Context, api DynamoAPI, table string) error {
	input := &ddbv2.CreateTableInput{
		TableName: awsv2.String(table),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{
				AttributeName: awsv2.String(LockTableHashKey),
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{
				AttributeName: awsv2.String(LockTableHashKey),
				KeyType:       ddbtypes.KeyTypeHash,
			},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	}

	if _, err := api.CreateTable(ctx, input); err != nil {
		var inUse *ddbtypes.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create lock table %s: %w", table, err)
		}
		log.Debugf("lock table %s already exists", table)
	}

	waiter := ddbv2.NewTableExistsWaiter(api)
	if err := waiter.Wait(ctx, &ddbv2.DescribeTableInput{TableName: awsv2.String(table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("timed out waiting for lock table %s: %w", table, err)
	}

	log.Infof("lock table %s ready", table)
	return nil
}

// BucketStatus reports the live posture of the state bucket.
type BucketStatus struct {
	Exists       bool
	Versioning   string
	SSEAlgorithm string
}

// TableStatus reports the live posture of the lock table.
type TableStatus struct {
	Exists      bool
	Status      string
	BillingMode string
	HashKey     string
}

// CheckBucket probes the bucket and reports whether it satisfies the
// substrate contract. A missing bucket yields Exists=false, not an error.
func CheckBucket(ctx context.Context, api S3API, bucket string) (*BucketStatus, error) {
	status := &BucketStatus{}

	if _, err := api.HeadBucket(ctx, &s3v2.HeadBucketInput{Bucket: awsv2.String(bucket)}); err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return status, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return status, nil
		}
		return nil, fmt.Errorf("failed to probe bucket %s: %w", bucket, err)
	}
	status.Exists = true

	ver, err := api.GetBucketVersioning(ctx, &s3v2.GetBucketVersioningInput{Bucket: awsv2.String(bucket)})
	if err != nil {
		return nil, fmt.Errorf("failed to get versioning on %s: %w", bucket, err)
	}
	status.Versioning = string(ver.Status)
	if status.Versioning == "" {
		status.Versioning = "Disabled"
	}

	enc, err := api.GetBucketEncryption(ctx, &s3v2.GetBucketEncryptionInput{Bucket: awsv2.String(bucket)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ServerSideEncryptionConfigurationNotFoundError" {
			status.SSEAlgorithm = "none"
			return status, nil
		}
		return nil, fmt.Errorf("failed to get encryption on %s: %w", bucket, err)
	}
	if cfg := enc.ServerSideEncryptionConfiguration; cfg != nil && len(cfg.Rules) > 0 {
		if def := cfg.Rules[0].ApplyServerSideEncryptionByDefault; def != nil {
			status.SSEAlgorithm = string(def.SSEAlgorithm)
		}
	}

	return status, nil
}

// CheckTable probes the lock table. A missing table yields Exists=false, not
// an error.
func CheckTable(ctx context.Context, api DynamoAPI, table string) (*TableStatus, error) {
	status := &TableStatus{}

	out, err := api.DescribeTable(ctx, &ddbv2.DescribeTableInput{TableName: awsv2.String(table)})
	if err != nil {
		var nf *ddbtypes.ResourceNotFoundException
		if errors.As(err, &nf) {
			return status, nil
		}
		return nil, fmt.Errorf("failed to describe lock table %s: %w", table, err)
	}

	status.Exists = true
	status.Status = string(out.Table.TableStatus)

	// Tables created before on-demand billing report no summary at all.
	status.BillingMode = string(ddbtypes.BillingModeProvisioned)
	if out.Table.BillingModeSummary != nil {
		status.BillingMode = string(out.Table.BillingModeSummary.BillingMode)
	}

	for _, k := range out.Table.KeySchema {
		if k.KeyType == ddbtypes.KeyTypeHash && k.AttributeName != nil {
			status.HashKey = *k.AttributeName
		}
	}

	return status, nil
}
