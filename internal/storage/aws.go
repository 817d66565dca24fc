package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AWSStorage provides AWS-backed storage using DynamoDB and S3
type AWSStorage struct {
	dynamoDB  dynamoAPI
	s3Client  s3API
	tableName string
	bucket    string
	region    string
}

// DynamoDBItem represents an item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// ledgerTTL is how long delivery records are kept.
const ledgerTTL = 90 * 24 * time.Hour

// NewAWSStorage creates a new AWS storage instance
func NewAWSStorage(ctx context.Context, tableName, bucket, region, profile string) (*AWSStorage, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &AWSStorage{
		dynamoDB:  dynamodb.NewFromConfig(cfg),
		s3Client:  s3.NewFromConfig(cfg),
		tableName: tableName,
		bucket:    bucket,
		region:    region,
	}, nil
}

func deliveryPK(job, email string) string {
	return fmt.Sprintf("DELIVERY#%s#%s", job, strings.ToLower(email))
}

// PutDelivery writes one ledger entry, keyed by job and recipient and
// sorted by time.
func (s *AWSStorage) PutDelivery(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}

	item := DynamoDBItem{
		PK:        deliveryPK(d.Job, d.Email),
		SK:        d.At.UTC().Format(time.RFC3339) + "#" + d.RunID,
		Data:      string(data),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TTL:       d.At.Add(ledgerTTL).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}

	return nil
}

// PutReport uploads a rendered report as HTML.
func (s *AWSStorage) PutReport(ctx context.Context, key, html string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}

	return nil
}
