package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/seqpack/collective"
	"golang.org/x/time/rate"
)

const (
	attrRunID = "run_id"
	attrRank  = "rank"
	attrValue = "value"
)

// DDBClient is the subset of the DynamoDB API used by the Gatherer.
type DDBClient interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type options struct {
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Gatherer.
type Option func(*options)

// WithPollInterval sets the minimum interval between queries.
// Default: collective.DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Gatherer implements collective.Gatherer on a DynamoDB table.
type Gatherer struct {
	client DDBClient
	table  string
	run    string
	rank   int
	world  int
	opts   options

	mu   sync.Mutex
	next uint64
}

var _ collective.Gatherer = (*Gatherer)(nil)

// NewGatherer creates a gatherer for rank in a run of world ranks.
func NewGatherer(client DDBClient, table, run string, rank, world int, optFns ...Option) (*Gatherer, error) {
	if world < 1 || rank < 0 || rank >= world {
		return nil, fmt.Errorf("%w: rank %d in world of %d", collective.ErrParticipantMismatch, rank, world)
	}
	if table == "" || run == "" {
		return nil, fmt.Errorf("%w: table and run must be set", collective.ErrCollective)
	}

	o := options{
		pollInterval: collective.DefaultPollInterval,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	return &Gatherer{
		client: client,
		table:  table,
		run:    run,
		rank:   rank,
		world:  world,
		opts:   o,
	}, nil
}

// Rank returns the caller's rank.
func (g *Gatherer) Rank() int { return g.rank }

// WorldSize returns the number of ranks.
func (g *Gatherer) WorldSize() int { return g.world }

// RunID returns the partition key of round id.
func (g *Gatherer) RunID(id uint64) string {
	return fmt.Sprintf("%s#%06d", g.run, id)
}

// AllGather writes this rank's contribution and waits for all others.
func (g *Gatherer) AllGather(ctx context.Context, v float64) ([]float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: value %v is not a finite number", collective.ErrCollective, v)
	}

	g.mu.Lock()
	id := g.next
	g.next++
	g.mu.Unlock()

	runID := g.RunID(id)
	if err := g.contribute(ctx, runID, v); err != nil {
		return nil, err
	}

	logger := g.opts.logger.With("run_id", runID, "rank", g.rank)
	limiter := rate.NewLimiter(rate.Every(g.opts.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", collective.ErrCollective, runID, err)
		}

		values, arrivals, err := g.query(ctx, runID)
		if err != nil {
			return nil, err
		}
		if arrivals.Complete() {
			logger.Debug("all-gather completed")
			return values, nil
		}
		logger.Debug("waiting for ranks",
			"arrived", arrivals.Count(),
			"world", g.world,
		)
	}
}

func (g *Gatherer) contribute(ctx context.Context, runID string, v float64) error {
	_, err := g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(g.table),
		Item: map[string]types.AttributeValue{
			attrRunID: &types.AttributeValueMemberS{Value: runID},
			attrRank:  &types.AttributeValueMemberN{Value: strconv.Itoa(g.rank)},
			attrValue: &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'g', -1, 64)},
		},
		ConditionExpression: aws.String("attribute_not_exists(#rank)"),
		ExpressionAttributeNames: map[string]string{
			"#rank": attrRank,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: rank %d in %s", collective.ErrRankConflict, g.rank, runID)
		}
		return fmt.Errorf("%w: put contribution: %w", collective.ErrCollective, err)
	}
	return nil
}

func (g *Gatherer) query(ctx context.Context, runID string) ([]float64, *collective.Arrivals, error) {
	values := make([]float64, g.world)
	arrivals := collective.NewArrivals(g.world)

	p := dynamodb.NewQueryPaginator(g.client, &dynamodb.QueryInput{
		TableName:              aws.String(g.table),
		KeyConditionExpression: aws.String("run_id = :run"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":run": &types.AttributeValueMemberS{Value: runID},
		},
		ConsistentRead: aws.Bool(true),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: query contributions: %w", collective.ErrCollective, err)
		}

		for _, item := range page.Items {
			rank, v, err := parseItem(item)
			if err != nil {
				return nil, nil, err
			}
			if err := arrivals.Add(rank); err != nil {
				return nil, nil, err
			}
			values[rank] = v
		}
	}

	return values, arrivals, nil
}

func parseItem(item map[string]types.AttributeValue) (int, float64, error) {
	rankAttr, ok := item[attrRank].(*types.AttributeValueMemberN)
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid rank attribute", collective.ErrParticipantMismatch)
	}
	valueAttr, ok := item[attrValue].(*types.AttributeValueMemberN)
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid value attribute", collective.ErrCollective)
	}

	rank, err := strconv.Atoi(rankAttr.Value)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parse rank: %w", collective.ErrParticipantMismatch, err)
	}
	v, err := strconv.ParseFloat(valueAttr.Value, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parse value: %w", collective.ErrCollective, err)
	}
	return rank, v, nil
}
