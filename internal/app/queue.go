package app

import (
	"github.com/hibiken/asynq"

	"docchat-platform/internal/config"
)

// AsynqRedisOpt maps the shared Redis settings onto asynq.
func AsynqRedisOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opt, err := config.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
