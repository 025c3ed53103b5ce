package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("mongo pool closed")

type dialFunc func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

// Pool hands out a single process-wide client, dialled lazily on first use.
// A failed dial is retried with backoff; once connected the client is reused
// by every caller until Close.
type Pool struct {
	uri      string
	database string
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	dial     dialFunc

	mu     sync.Mutex
	client *mongo.Client
	closed bool
}

func NewPool(uri, database string, timeout time.Duration, attempts int) *Pool {
	if attempts < 1 {
		attempts = 1
	}
	return &Pool{
		uri:      uri,
		database: database,
		timeout:  timeout,
		attempts: attempts,
		backoff:  time.Second,
		dial:     ConnectMongo,
	}
}

// NewPoolFromClient wraps an already connected client.
func NewPoolFromClient(client *mongo.Client, database string) *Pool {
	return &Pool{database: database, client: client, attempts: 1}
}

// Acquire returns the database handle, dialling on first call.
func (p *Pool) Acquire(ctx context.Context) (*mongo.Database, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.client != nil {
		return p.client.Database(p.database), nil
	}

	backoff := p.backoff
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		client, err := p.dial(ctx, p.uri, p.timeout)
		if err == nil {
			p.client = client
			return client.Database(p.database), nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, p.attempts, err)
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", p.attempts, lastErr)
}

// Collection is a shorthand for Acquire followed by Database.Collection.
func (p *Pool) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping checks the connection, dialling if needed.
func (p *Pool) Ping(ctx context.Context) error {
	db, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	return db.Client().Ping(ctx, nil)
}

// Close disconnects the client. Subsequent Acquire calls fail.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(ctx)
	p.client = nil
	return err
}
