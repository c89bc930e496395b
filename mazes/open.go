package mazes

import (
	"context"
	"errors"
	"fmt"

	"mazerl/config"
)

var ErrStoreKind = errors.New("mazes: unknown store kind")

// Open builds the backend named by cfg.Kind.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Kind {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "mongo":
		ms, err := ConnectMongo(ctx, cfg.URI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "redis":
		rs, err := ConnectRedis(ctx, cfg.Addr, cfg.Password, cfg.Key)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrStoreKind, cfg.Kind)
}
