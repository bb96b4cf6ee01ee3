package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues background tasks on the asynq queue.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueTrackReady queues completion of a rendered track. The task id is the
// provider task id, so a provider retrying its callback does not queue twice.
func (c *Client) EnqueueTrackReady(ctx context.Context, ready musicgen.TrackReady) error {
	task, err := NewTrackReadyTask(ready)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("track-ready:"+ready.TaskID),
		asynq.MaxRetry(trackReadyMaxRetry),
		asynq.Timeout(trackReadyTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// NewRedisClient opens a go-redis client for the tick lock.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfig(opt.TLSConfig, cfg.GetRedisTLSInsecure())
	return redis.NewClient(opt), nil
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig(opt.TLSConfig, tlsInsecure),
	}, nil
}

func tlsConfig(base *tls.Config, tlsInsecure bool) *tls.Config {
	if base != nil {
		clone := base.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if tlsInsecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}
