package sink

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/resilience"
)

// Open connects every sink named in cfg.Output.Sinks. Network sinks are
// wrapped with retries. On failure the sinks opened so far are closed.
func Open(cfg *config.Config, observer WriteObserver) (*Multi, error) {
	retry := resilience.FromSettings(cfg.Output.Retry)
	sinks := make([]Sink, 0, len(cfg.Output.Sinks))
	fail := func(err error) (*Multi, error) {
		NewMulti(nil, sinks...).Close()
		return nil, err
	}

	for _, name := range cfg.Output.Sinks {
		switch name {
		case config.SinkFile:
			sinks = append(sinks, NewFileSink(cfg.Output.Path))
		case config.SinkRedis:
			client, err := redis.NewClient(cfg.Redis)
			if err != nil {
				return fail(fmt.Errorf("%w: opening redis sink: %w", apperrors.ErrSinkFailed, err))
			}
			sinks = append(sinks, WithRetry(NewRedisSink(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), retry))
		case config.SinkPostgres:
			client, err := postgres.New(cfg.Postgres)
			if err != nil {
				return fail(fmt.Errorf("%w: opening postgres sink: %w", apperrors.ErrSinkFailed, err))
			}
			sinks = append(sinks, WithRetry(NewPostgresSink(client), retry))
		case config.SinkKafka:
			producer, err := kafka.NewProducer(cfg.Kafka)
			if err != nil {
				return fail(apperrors.Newf(apperrors.ErrInvalidConfig, "kafka sink: %v", err))
			}
			sinks = append(sinks, WithRetry(NewKafkaSink(producer), retry))
		default:
			return fail(apperrors.Newf(apperrors.ErrInvalidConfig, "unknown sink %q", name))
		}
	}
	return NewMulti(observer, sinks...), nil
}
