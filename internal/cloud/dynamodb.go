package cloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

// sequence items share the devices table under reserved keys
const (
	deviceSequenceKey  = "#seq#devices"
	readingSequenceKey = "#seq#readings"
)

// maxReceiptAttempts bounds retries on a received_at collision.
const maxReceiptAttempts = 5

// dynamoAPI is the subset of *dynamodb.Client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBStore keeps devices and readings in two DynamoDB tables.
//
// Devices are keyed by device_key. Readings use device_id as partition key
// and received_at (unix nanoseconds) as sort key.
type DynamoDBStore struct {
	svc           dynamoAPI
	devicesTable  string
	readingsTable string

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewDynamoDBStore creates a store from the default AWS credential chain.
func NewDynamoDBStore(ctx context.Context, region, devicesTable, readingsTable string) (*DynamoDBStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newDynamoDBStore(dynamodb.NewFromConfig(cfg), devicesTable, readingsTable), nil
}

func newDynamoDBStore(svc dynamoAPI, devicesTable, readingsTable string) *DynamoDBStore {
	return &DynamoDBStore{
		svc:           svc,
		devicesTable:  devicesTable,
		readingsTable: readingsTable,
		now:           time.Now,
	}
}

type deviceItem struct {
	Key        string `dynamodbav:"device_key"`
	ID         int64  `dynamodbav:"id"`
	CreatedAt  int64  `dynamodbav:"created_at"`
	LastSeenAt int64  `dynamodbav:"last_seen_at"`
}

func (d deviceItem) toDomain() domain.Device {
	return domain.Device{
		ID:         d.ID,
		Key:        d.Key,
		CreatedAt:  time.Unix(0, d.CreatedAt).UTC(),
		LastSeenAt: time.Unix(0, d.LastSeenAt).UTC(),
	}
}

type readingItem struct {
	DeviceID    int64    `dynamodbav:"device_id"`
	ReceivedAt  int64    `dynamodbav:"received_at"`
	ID          int64    `dynamodbav:"id"`
	DeviceKey   string   `dynamodbav:"device_key"`
	ClientID    string   `dynamodbav:"client_id"`
	ClientTime  *int64   `dynamodbav:"client_time,omitempty"`
	Temperature *float64 `dynamodbav:"temperature,omitempty"`
	Humidity    *float64 `dynamodbav:"humidity,omitempty"`
	PM25        *float64 `dynamodbav:"pm25,omitempty"`
	PM10        *float64 `dynamodbav:"pm10,omitempty"`
	CO2         *float64 `dynamodbav:"co2,omitempty"`
	TVOC        *float64 `dynamodbav:"tvoc,omitempty"`
}

func toReadingItem(r domain.Reading) readingItem {
	item := readingItem{
		DeviceID:    r.DeviceID,
		ReceivedAt:  r.ReceivedAt.UnixNano(),
		ID:          r.ID,
		DeviceKey:   r.DeviceKey,
		ClientID:    r.ClientID,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		PM25:        r.PM25,
		PM10:        r.PM10,
		CO2:         r.CO2,
		TVOC:        r.TVOC,
	}
	if r.ClientTime != nil {
		ns := r.ClientTime.UnixNano()
		item.ClientTime = &ns
	}
	return item
}

func (it readingItem) toDomain() domain.Reading {
	r := domain.Reading{
		ID:         it.ID,
		DeviceID:   it.DeviceID,
		DeviceKey:  it.DeviceKey,
		ClientID:   it.ClientID,
		ReceivedAt: time.Unix(0, it.ReceivedAt).UTC(),
		Values: domain.Values{
			Temperature: it.Temperature,
			Humidity:    it.Humidity,
			PM25:        it.PM25,
			PM10:        it.PM10,
			CO2:         it.CO2,
			TVOC:        it.TVOC,
		},
	}
	if it.ClientTime != nil {
		ct := time.Unix(0, *it.ClientTime).UTC()
		r.ClientTime = &ct
	}
	return r
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: dynamodb %s: %w", domain.ErrStore, op, err)
}

// nextID atomically increments a sequence item and returns the new value.
func (s *DynamoDBStore) nextID(ctx context.Context, sequence string) (int64, error) {
	out, err := s.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.devicesTable),
		Key: map[string]types.AttributeValue{
			"device_key": &types.AttributeValueMemberS{Value: sequence},
		},
		UpdateExpression: aws.String("ADD seq_value :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	n, ok := out.Attributes["seq_value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("sequence value missing")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

// receiptTime returns the current time, nudged forward so that successive
// inserts from this process never share or reverse a sort key.
func (s *DynamoDBStore) receiptTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.now().UnixNano()
	if ns <= s.last {
		ns = s.last + 1
	}
	s.last = ns
	return time.Unix(0, ns).UTC()
}

func (s *DynamoDBStore) getDevice(ctx context.Context, key string) (*deviceItem, error) {
	out, err := s.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.devicesTable),
		Key: map[string]types.AttributeValue{
			"device_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var d deviceItem
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DynamoDBStore) UpsertDevice(ctx context.Context, key string) (domain.Device, error) {
	now := s.now().UnixNano()

	existing, err := s.getDevice(ctx, key)
	if err != nil {
		return domain.Device{}, storeErr("get device", err)
	}
	if existing != nil {
		_, err := s.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(s.devicesTable),
			Key: map[string]types.AttributeValue{
				"device_key": &types.AttributeValueMemberS{Value: key},
			},
			UpdateExpression: aws.String("SET last_seen_at = :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			},
		})
		if err != nil {
			return domain.Device{}, storeErr("touch device", err)
		}
		existing.LastSeenAt = now
		return existing.toDomain(), nil
	}

	id, err := s.nextID(ctx, deviceSequenceKey)
	if err != nil {
		return domain.Device{}, storeErr("allocate device id", err)
	}
	d := deviceItem{Key: key, ID: id, CreatedAt: now, LastSeenAt: now}
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to marshal device: %w", err)
	}

	_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.devicesTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(device_key)"),
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		// another writer created it first
		winner, gerr := s.getDevice(ctx, key)
		if gerr != nil || winner == nil {
			return domain.Device{}, storeErr("reload device", errors.Join(err, gerr))
		}
		return winner.toDomain(), nil
	}
	if err != nil {
		return domain.Device{}, storeErr("put device", err)
	}
	return d.toDomain(), nil
}

func (s *DynamoDBStore) FindDevice(ctx context.Context, key string) (domain.Device, error) {
	d, err := s.getDevice(ctx, key)
	if err != nil {
		return domain.Device{}, storeErr("get device", err)
	}
	if d == nil {
		return domain.Device{}, fmt.Errorf("device %s: %w", key, domain.ErrNotFound)
	}
	return d.toDomain(), nil
}

func (s *DynamoDBStore) ListDevices(ctx context.Context) ([]domain.Device, error) {
	paginator := dynamodb.NewScanPaginator(s.svc, &dynamodb.ScanInput{
		TableName:        aws.String(s.devicesTable),
		FilterExpression: aws.String("attribute_exists(id)"),
	})

	var out []domain.Device
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("scan devices", err)
		}
		var items []deviceItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal devices: %w", err)
		}
		for _, it := range items {
			out = append(out, it.toDomain())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DynamoDBStore) InsertReading(ctx context.Context, rd *domain.Reading) error {
	id, err := s.nextID(ctx, readingSequenceKey)
	if err != nil {
		return storeErr("allocate reading id", err)
	}
	rd.ID = id

	// Another process may hold the same sort key; take the next one.
	for attempt := 1; ; attempt++ {
		rd.ReceivedAt = s.receiptTime()

		item, err := attributevalue.MarshalMap(toReadingItem(*rd))
		if err != nil {
			return fmt.Errorf("failed to marshal reading: %w", err)
		}
		_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.readingsTable),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(received_at)"),
		})
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) && attempt < maxReceiptAttempts {
			continue
		}
		if err != nil {
			return storeErr("put reading", err)
		}
		return nil
	}
}

func (s *DynamoDBStore) FindRecentReadings(ctx context.Context, deviceID int64, since time.Time) ([]domain.Reading, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.readingsTable),
		KeyConditionExpression: aws.String("device_id = :d AND received_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":     &types.AttributeValueMemberN{Value: strconv.FormatInt(deviceID, 10)},
			":since": &types.AttributeValueMemberN{Value: strconv.FormatInt(since.UnixNano(), 10)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}, 0)
}

func (s *DynamoDBStore) FindReadings(ctx context.Context, deviceID int64, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		return []domain.Reading{}, nil
	}
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.readingsTable),
		KeyConditionExpression: aws.String("device_id = :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberN{Value: strconv.FormatInt(deviceID, 10)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}, limit)
}

// query pages through results until limit readings are collected, or all
// of them when limit is 0.
func (s *DynamoDBStore) query(ctx context.Context, in *dynamodb.QueryInput, limit int) ([]domain.Reading, error) {
	paginator := dynamodb.NewQueryPaginator(s.svc, in)

	out := []domain.Reading{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("query readings", err)
		}
		var items []readingItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
		}
		for _, it := range items {
			out = append(out, it.toDomain())
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
