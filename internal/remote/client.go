// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	ddbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	multierror "github.com/hashicorp/go-multierror"

	awsx "github.com/tfback/tfback/internal/aws"
	"github.com/tfback/tfback/internal/backend"
	"github.com/tfback/tfback/internal/log"
)

// The digest of the last saved state is stored in the lock table under the
// lock path plus this suffix so clients can detect stale reads.
const (
	stateIDSuffix   = "-md5"
	contentTypeJSON = "application/json"
)

// S3API is the slice of the S3 surface the client needs. Narrow so tests can
// fake it.
type S3API interface {
	HeadObject(ctx context.Context, params *s3v2.HeadObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3v2.DeleteObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error)
	ListObjectVersions(ctx context.Context, params *s3v2.ListObjectVersionsInput, optFns ...func(*s3v2.Options)) (*s3v2.ListObjectVersionsOutput, error)
}

// DynamoAPI is the slice of the DynamoDB surface the client needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *ddbv2.GetItemInput, optFns ...func(*ddbv2.Options)) (*ddbv2.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddbv2.PutItemInput, optFns ...func(*ddbv2.Options)) (*ddbv2.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *ddbv2.DeleteItemInput, optFns ...func(*ddbv2.Options)) (*ddbv2.DeleteItemOutput, error)
}

// Payload is a fetched state blob plus its digest.
type Payload struct {
	Data []byte
	MD5  []byte
}

// ErrStaleToken is returned by Put when the presented lock token no longer
// matches the live lock record (expired by force-unlock, or never held).
var ErrStaleToken = errors.New("lock token does not match the current lock record")

// Client reads and writes a single state object and drives its lock record.
type Client struct {
	s3Client  S3API
	dynClient DynamoAPI
	bucket    string
	path      string
	lockID    string
	table     string
	encrypt   bool
	kmsKeyID  string
}

var (
	// The amount of time we will retry a state waiting for it to match the
	// expected checksum.
	consistencyRetryTimeout = 10 * time.Second

	// delay when polling the state
	consistencyRetryPollInterval = 2 * time.Second
)

// test hook called when checksums don't match
var testChecksumHook func()

// NewClient builds a Client for the resolved backend using real AWS service
// clients derived from cfg.
func NewClient(cfg awsv2.Config, be *backend.Backend) *Client {
	return NewClientWithAPIs(awsx.NewS3(cfg), awsx.NewDynamoDB(cfg), be)
}

// NewClientWithAPIs builds a Client over explicit service APIs. Used by
// tests and by callers that need customized service options.
func NewClientWithAPIs(s3Client S3API, dynClient DynamoAPI, be *backend.Backend) *Client {
	return &Client{
		s3Client:  s3Client,
		dynClient: dynClient,
		bucket:    be.Pointer.Bucket,
		path:      be.StateKey(),
		lockID:    be.LockPath(),
		table:     be.Pointer.Table,
		encrypt:   be.Pointer.Encrypt,
		kmsKeyID:  be.Pointer.KmsKeyID,
	}
}

// LockingEnabled reports whether a lock table is configured.
func (c *Client) LockingEnabled() bool {
	return c.table != ""
}

// Get fetches the current state object. A nil payload with a nil error means
// no state has been written yet. When a digest row exists and disagrees with
// the fetched body, the read is retried for a bounded window before giving
// up, since S3 reads can trail a recent write.
func (c *Client) Get(ctx context.Context) (payload *Payload, err error) {
	deadline := time.Now().Add(consistencyRetryTimeout)

	for {
		payload, err = c.get(ctx)
		if err != nil {
			return nil, err
		}

		// If the remote state was manually removed the payload will be nil,
		// but if there's still a digest entry for that state we will still try
		// to compare the MD5 below.
		var digest []byte
		if payload != nil {
			digest = payload.MD5
		}

		// verify that this state is what we expect
		if expected, err := c.getMD5(ctx); err != nil {
			log.Warnf("failed to fetch state md5: %s", err)
		} else if len(expected) > 0 && !bytes.Equal(expected, digest) {
			log.Warnf("state md5 mismatch: expected '%x', got '%x'", expected, digest)

			if testChecksumHook != nil {
				testChecksumHook()
			}

			if time.Now().Before(deadline) {
				time.Sleep(consistencyRetryPollInterval)
				log.Infof("retrying remote state get")
				continue
			}

			return nil, fmt.Errorf(errBadChecksumFmt, digest)
		}

		break
	}

	return payload, err
}

func (c *Client) get(ctx context.Context) (*Payload, error) {
	// Head first: some S3-compatible stores mishandle GetObject on a missing
	// key (minio reports a missing bucket).
	_, err := c.s3Client.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &c.path,
	})
	if err != nil {
		var nb *types.NoSuchBucket
		if errors.As(err, &nb) {
			return nil, fmt.Errorf(errNoSuchBucket, err)
		}

		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}

		return nil, err
	}

	output, err := c.s3Client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &c.path,
	})
	if err != nil {
		var nb *types.NoSuchBucket
		if errors.As(err, &nb) {
			return nil, fmt.Errorf(errNoSuchBucket, err)
		}

		var nk *types.NoSuchKey
		if errors.As(err, &nk) {
			return nil, nil
		}

		return nil, err
	}

	defer output.Body.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, output.Body); err != nil {
		return nil, fmt.Errorf("failed to read remote state: %w", err)
	}

	// If there was no data, then return nil
	if buf.Len() == 0 {
		return nil, nil
	}

	sum := md5.Sum(buf.Bytes())
	return &Payload{
		Data: buf.Bytes(),
		MD5:  sum[:],
	}, nil
}

// Put persists a new state blob. When a lock table is configured and a token
// is presented, the write is refused unless the token still matches the live
// lock record. An empty token skips the check, which is only appropriate
// when locking is disabled for the backend.
func (c *Client) Put(ctx context.Context, data []byte, token string) error {
	if c.table != "" && token != "" {
		current, err := c.getLockInfo(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify lock before write: %w", err)
		}
		if current == nil || current.ID != token {
			return &LockError{Info: current, Err: ErrStaleToken}
		}
	}

	contentLength := int64(len(data))

	i := &s3v2.PutObjectInput{
		ContentType:   awsv2.String(contentTypeJSON),
		ContentLength: awsv2.Int64(contentLength),
		Body:          bytes.NewReader(data),
		Bucket:        &c.bucket,
		Key:           &c.path,
	}

	// Pre-compute the hash rather than letting the SDK stream it; several
	// S3-compatible services reject the streamed trailer form.
	i.ChecksumAlgorithm = types.ChecksumAlgorithmSha256
	algo := sha256.New()
	algo.Write(data)
	sum64str := base64.StdEncoding.EncodeToString(algo.Sum(nil))
	i.ChecksumSHA256 = &sum64str

	if c.encrypt {
		if c.kmsKeyID != "" {
			i.SSEKMSKeyId = &c.kmsKeyID
			i.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		} else {
			i.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}

	log.Debugf("uploading remote state: bucket=%s key=%s bytes=%d", c.bucket, c.path, contentLength)

	if _, err := c.s3Client.PutObject(ctx, i); err != nil {
		return fmt.Errorf("failed to upload state: %w", err)
	}

	sum := md5.Sum(data)
	if err := c.putMD5(ctx, sum[:]); err != nil {
		// if this errors out, we unfortunately have to error out altogether,
		// since the next Get will inevitably fail.
		return fmt.Errorf("failed to store state MD5: %w", err)
	}

	return nil
}

// Delete removes the state object and its digest row.
func (c *Client) Delete(ctx context.Context) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3v2.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &c.path,
	})
	if err != nil {
		return err
	}

	if err := c.deleteMD5(ctx); err != nil {
		log.Warnf("error deleting state md5: %s", err)
	}

	return nil
}

// Lock attempts to create the lock record for this state object. On success
// the returned token must be presented to Put and Unlock. When the record
// already exists the error is a *LockError carrying the current holder, and
// the caller is expected to surface it rather than retry; there is no
// automatic expiry.
func (c *Client) Lock(ctx context.Context, info *LockInfo) (string, error) {
	if !c.LockingEnabled() {
		return "", nil
	}

	if info.ID == "" {
		fresh, err := NewLockInfo(info.Operation)
		if err != nil {
			return "", err
		}
		info.ID = fresh.ID
	}
	info.Path = c.lockID

	putParams := &ddbv2.PutItemInput{
		Item: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID},
			"Info":   &dtypes.AttributeValueMemberS{Value: string(info.Marshal())},
		},
		TableName:           awsv2.String(c.table),
		ConditionExpression: awsv2.String("attribute_not_exists(LockID)"),
	}

	if _, err := c.dynClient.PutItem(ctx, putParams); err != nil {
		lockInfo, infoErr := c.getLockInfo(ctx)
		if infoErr != nil {
			err = multierror.Append(err, infoErr)
		}

		return "", &LockError{
			Err:  err,
			Info: lockInfo,
		}
	}

	return info.ID, nil
}

// Unlock deletes the lock record if id matches the current holder. The
// delete is conditioned on the stored info so a concurrent re-acquisition
// cannot be released by a stale caller.
func (c *Client) Unlock(ctx context.Context, id string) error {
	if !c.LockingEnabled() {
		return nil
	}

	lockErr := &LockError{}

	lockInfo, err := c.getLockInfo(ctx)
	if err != nil {
		lockErr.Err = fmt.Errorf("failed to retrieve lock info: %w", err)
		return lockErr
	}
	if lockInfo == nil {
		lockErr.Err = fmt.Errorf("no lock record found for %q", c.lockID)
		return lockErr
	}
	lockErr.Info = lockInfo

	if lockInfo.ID != id {
		lockErr.Err = fmt.Errorf("lock id %q does not match existing lock", id)
		return lockErr
	}

	params := &ddbv2.DeleteItemInput{
		Key: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID},
		},
		TableName:           awsv2.String(c.table),
		ConditionExpression: awsv2.String("Info = :info"),
		ExpressionAttributeValues: map[string]dtypes.AttributeValue{
			":info": &dtypes.AttributeValueMemberS{Value: string(lockInfo.Marshal())},
		},
	}
	if _, err := c.dynClient.DeleteItem(ctx, params); err != nil {
		lockErr.Err = err
		return lockErr
	}
	return nil
}

// ForceUnlock removes whatever lock record exists, regardless of holder.
// Operator intervention for the crashed-holder case; returns the evicted
// holder's info when one was present.
func (c *Client) ForceUnlock(ctx context.Context) (*LockInfo, error) {
	if !c.LockingEnabled() {
		return nil, nil
	}

	lockInfo, err := c.getLockInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lock info: %w", err)
	}
	if lockInfo == nil {
		return nil, nil
	}

	params := &ddbv2.DeleteItemInput{
		Key: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID},
		},
		TableName: awsv2.String(c.table),
	}
	if _, err := c.dynClient.DeleteItem(ctx, params); err != nil {
		return lockInfo, err
	}
	return lockInfo, nil
}

// CurrentLock returns the live lock record, or nil when the state object is
// unlocked.
func (c *Client) CurrentLock(ctx context.Context) (*LockInfo, error) {
	if !c.LockingEnabled() {
		return nil, nil
	}
	return c.getLockInfo(ctx)
}

func (c *Client) getLockInfo(ctx context.Context) (*LockInfo, error) {
	getParams := &ddbv2.GetItemInput{
		Key: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID},
		},
		ProjectionExpression: awsv2.String("LockID, Info"),
		TableName:            awsv2.String(c.table),
		ConsistentRead:       awsv2.Bool(true),
	}

	resp, err := c.dynClient.GetItem(ctx, getParams)
	if err != nil {
		return nil, err
	}

	if len(resp.Item) == 0 {
		return nil, nil
	}

	var infoData string
	if v, ok := resp.Item["Info"]; ok {
		if v, ok := v.(*dtypes.AttributeValueMemberS); ok {
			infoData = v.Value
		}
	}

	lockInfo := &LockInfo{}
	if err := json.Unmarshal([]byte(infoData), lockInfo); err != nil {
		return nil, err
	}

	return lockInfo, nil
}

func (c *Client) getMD5(ctx context.Context) ([]byte, error) {
	if c.table == "" {
		return nil, nil
	}

	getParams := &ddbv2.GetItemInput{
		Key: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID + stateIDSuffix},
		},
		ProjectionExpression: awsv2.String("LockID, Digest"),
		TableName:            awsv2.String(c.table),
		ConsistentRead:       awsv2.Bool(true),
	}

	resp, err := c.dynClient.GetItem(ctx, getParams)
	if err != nil {
		return nil, err
	}

	if len(resp.Item) == 0 {
		return nil, nil
	}

	var val string
	if v, ok := resp.Item["Digest"]; ok {
		if v, ok := v.(*dtypes.AttributeValueMemberS); ok {
			val = v.Value
		}
	}

	sum, err := hex.DecodeString(val)
	if err != nil || len(sum) != md5.Size {
		return nil, errors.New("invalid md5")
	}

	return sum, nil
}

// store the hash of the state so that clients can check for stale state files.
func (c *Client) putMD5(ctx context.Context, sum []byte) error {
	if c.table == "" {
		return nil
	}

	if len(sum) != md5.Size {
		return errors.New("invalid payload md5")
	}

	putParams := &ddbv2.PutItemInput{
		Item: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID + stateIDSuffix},
			"Digest": &dtypes.AttributeValueMemberS{Value: hex.EncodeToString(sum)},
		},
		TableName: awsv2.String(c.table),
	}
	if _, err := c.dynClient.PutItem(ctx, putParams); err != nil {
		log.Warnf("failed to record state digest in lock table: %s", err)
	}

	return nil
}

// remove the hash value for a deleted state
func (c *Client) deleteMD5(ctx context.Context) error {
	if c.table == "" {
		return nil
	}

	params := &ddbv2.DeleteItemInput{
		Key: map[string]dtypes.AttributeValue{
			"LockID": &dtypes.AttributeValueMemberS{Value: c.lockID + stateIDSuffix},
		},
		TableName: awsv2.String(c.table),
	}
	if _, err := c.dynClient.DeleteItem(ctx, params); err != nil {
		return err
	}
	return nil
}

const errBadChecksumFmt = `state data in S3 does not have the expected content.

This may be caused by unusually long delays in S3 processing a previous state
update. Please wait for a minute or two and try again. If this problem
persists, and neither S3 nor DynamoDB are experiencing an outage, you may need
to manually verify the remote state and update the Digest value stored in the
DynamoDB table to the following value: %x
`

const errNoSuchBucket = `S3 bucket does not exist.

The referenced S3 bucket must have been previously created. If the S3 bucket
was created within the last minute, please wait for a minute or two and try
again.

Error: %w
`
