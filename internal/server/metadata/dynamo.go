package metadata

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

// DynamoAPI is the slice of the DynamoDB client used by the repository.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoRepository implements Repository over a DynamoDB table keyed by
// file_id. The table's native TTL feature handles row expiry.
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoRepository constructs a repository bound to the given table.
func NewDynamoRepository(client DynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func (r *DynamoRepository) key(fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"file_id": &types.AttributeValueMemberS{Value: fileID},
	}
}

// Put upserts the record. A racing duplicate file_id silently overwrites;
// the random id prefix makes that practically impossible.
func (r *DynamoRepository) Put(ctx context.Context, record *Record) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("%w: marshalling record: %v", common.ErrDependency, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: put item: %v", common.ErrDependency, err)
	}
	return nil
}

func (r *DynamoRepository) Get(ctx context.Context, fileID string) (*Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(fileID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get item: %v", common.ErrDependency, err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrNotFound
	}

	record := &Record{}
	if err := attributevalue.UnmarshalMap(out.Item, record); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling record: %v", common.ErrDependency, err)
	}
	return record, nil
}

// ScanAll reads the whole table in one request, no pagination. Fine at this
// system's scale, would not survive a large table.
func (r *DynamoRepository) ScanAll(ctx context.Context) ([]*Record, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %v", common.ErrDependency, err)
	}

	records := make([]*Record, 0, len(out.Items))
	for _, item := range out.Items {
		record := &Record{}
		if err := attributevalue.UnmarshalMap(item, record); err != nil {
			return nil, fmt.Errorf("%w: unmarshalling record: %v", common.ErrDependency, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *DynamoRepository) Delete(ctx context.Context, fileID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(fileID),
	})
	if err != nil {
		return fmt.Errorf("%w: delete item: %v", common.ErrDependency, err)
	}
	return nil
}
