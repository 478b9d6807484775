package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"halcyon-net/warden/pkg/limits"
)

// Key layout maintained by the access layer:
//
//	usage:data:<username>              total bytes transferred
//	usage:time:<username>              total connected seconds
//	usage:conns:<username>             set of live connection IDs
//	usage:speed:<username>             current transfer rate, bytes/sec
//	usage:daily:<username>:<yyyy-mm-dd>  bytes transferred that day
//
// Daily buckets also serve the weekly and monthly kinds, summed over the
// trailing 7 and 30 days.
const (
	keyData  = "usage:data:%s"
	keyTime  = "usage:time:%s"
	keyConns = "usage:conns:%s"
	keySpeed = "usage:speed:%s"
	keyDaily = "usage:daily:%s:%s"

	weeklyDays  = 7
	monthlyDays = 30
)

// RedisSource reads usage counters from Redis.
type RedisSource struct {
	client *redis.Client

	// now is swappable for tests.
	now func() time.Time
}

// NewRedisSource connects to Redis using a URL of the form
// redis://[user:pass@]host:port/db and verifies the connection.
func NewRedisSource(ctx context.Context, url string) (*RedisSource, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSource{client: client, now: time.Now}, nil
}

// Snapshot reads every usage counter for a user in one pipeline round trip.
func (r *RedisSource) Snapshot(ctx context.Context, username string) (limits.Usage, error) {
	today := r.now().UTC()

	pipe := r.client.Pipeline()
	dataCmd := pipe.Get(ctx, fmt.Sprintf(keyData, username))
	timeCmd := pipe.Get(ctx, fmt.Sprintf(keyTime, username))
	connsCmd := pipe.SCard(ctx, fmt.Sprintf(keyConns, username))
	speedCmd := pipe.Get(ctx, fmt.Sprintf(keySpeed, username))

	dayCmds := make([]*redis.StringCmd, monthlyDays)
	for i := 0; i < monthlyDays; i++ {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		dayCmds[i] = pipe.Get(ctx, fmt.Sprintf(keyDaily, username, day))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", limits.ErrUsageUnavailable, err)
	}

	usage := limits.Usage{}

	data, err := counterValue(dataCmd)
	if err != nil {
		return nil, err
	}
	usage[limits.KindData] = data

	seconds, err := counterValue(timeCmd)
	if err != nil {
		return nil, err
	}
	usage[limits.KindTime] = seconds

	usage[limits.KindConnections] = connsCmd.Val()

	speed, err := counterValue(speedCmd)
	if err != nil {
		return nil, err
	}
	usage[limits.KindSpeed] = speed

	var weekly, monthly int64
	for i, cmd := range dayCmds {
		v, err := counterValue(cmd)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			usage[limits.KindDaily] = v
		}
		if i < weeklyDays {
			weekly += v
		}
		monthly += v
	}
	usage[limits.KindWeekly] = weekly
	usage[limits.KindMonthly] = monthly

	return usage, nil
}

// counterValue reads an integer counter, treating a missing key as zero.
func counterValue(cmd *redis.StringCmd) (int64, error) {
	v, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", limits.ErrUsageUnavailable, err)
	}
	return v, nil
}

// Close closes the Redis client.
func (r *RedisSource) Close() error {
	return r.client.Close()
}
