package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/store"
)

type Config struct {
	Region        string
	Endpoint      string
	UsersTable    string
	ListingsTable string
}

type getItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Directory reads users and listings from DynamoDB tables keyed by "userId"
// and "listingId".
type Directory struct {
	client        getItemAPI
	usersTable    string
	listingsTable string
}

func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func NewDirectory(client getItemAPI, cfg Config) *Directory {
	return &Directory{
		client:        client,
		usersTable:    cfg.UsersTable,
		listingsTable: cfg.ListingsTable,
	}
}

func (d *Directory) FindListing(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	if err := d.getItem(ctx, d.listingsTable, "listingId", id, &l); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func (d *Directory) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	if err := d.getItem(ctx, d.usersTable, "userId", id, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (d *Directory) getItem(ctx context.Context, table, keyName, id string, out any) error {
	if id == "" {
		return store.ErrNotFound
	}

	output, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			keyName: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("get item from table %q: %w", table, err)
	}
	if len(output.Item) == 0 {
		return store.ErrNotFound
	}

	if err := attributevalue.UnmarshalMap(output.Item, out); err != nil {
		return fmt.Errorf("unmarshal item from table %q: %w", table, err)
	}
	return nil
}
