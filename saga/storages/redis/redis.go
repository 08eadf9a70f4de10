package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
)

const deadlinesKey = "saga:deadlines"

type SagaStorageRedis struct {
	client *redis.Client
}

func New() *SagaStorageRedis {
	return &SagaStorageRedis{}
}

func (r *SagaStorageRedis) Connect(ctx context.Context, uri string, password string) error {
	r.client = redis.NewClient(&redis.Options{
		Addr:       uri,
		Password:   password,
		DB:         0, // use default DB
		MaxRetries: 2,
	})
	var err error
	ctxPing, cancel := context.WithTimeout(ctx, time.Millisecond*500)
	defer cancel()
	for i := 0; i < 10; i++ {
		if err = r.client.Ping(ctxPing).Err(); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}

	return err
}

func sagaKey(id string) string {
	return "saga:" + id
}

func (r *SagaStorageRedis) Create(ctx context.Context, sg *entities.Saga) error {
	payload, err := json.Marshal(sg)
	if err != nil {
		return err
	}

	stored, err := r.client.SetNX(ctx, sagaKey(sg.Id), payload, 0).Result()
	if err != nil {
		return err
	}
	if !stored {
		return storages.ErrSagaExists
	}

	if sg.Deadline > 0 {
		err = r.client.ZAdd(ctx, deadlinesKey, &redis.Z{Score: float64(sg.Deadline), Member: sg.Id}).Err()
	}

	return err
}

func (r *SagaStorageRedis) Get(ctx context.Context, id string) (*entities.Saga, error) {
	found, err := r.client.Get(ctx, sagaKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, storages.ErrSagaNotFound
		}
		return nil, err
	}

	var sg entities.Saga
	if err = json.Unmarshal([]byte(found), &sg); err != nil {
		return nil, err
	}
	sg.Id = id

	return &sg, nil
}

// Replace performs an optimistic overwrite under WATCH: the write aborts
// with ErrVersionConflict when the stored version moved past sg.Version.
func (r *SagaStorageRedis) Replace(ctx context.Context, sg *entities.Saga) error {
	key := sagaKey(sg.Id)
	next := *sg
	next.Version = sg.Version + 1

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		found, err := tx.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return storages.ErrSagaNotFound
			}
			return err
		}
		var stored entities.Saga
		if err = json.Unmarshal([]byte(found), &stored); err != nil {
			return err
		}
		if stored.Version != sg.Version {
			return storages.ErrVersionConflict
		}

		payload, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if next.Deadline > 0 {
				pipe.ZAdd(ctx, deadlinesKey, &redis.Z{Score: float64(next.Deadline), Member: sg.Id})
			} else {
				pipe.ZRem(ctx, deadlinesKey, sg.Id)
			}
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return storages.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	sg.Version = next.Version
	return nil
}

func (r *SagaStorageRedis) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, sagaKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return storages.ErrSagaNotFound
	}
	return r.client.ZRem(ctx, deadlinesKey, id).Err()
}

func (r *SagaStorageRedis) FetchExpired(ctx context.Context, now int64, limit int64) ([]entities.Saga, error) {
	ids, err := r.client.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min:   "1",
		Max:   strconv.FormatInt(now, 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	sagas := make([]entities.Saga, 0, len(ids))
	for _, id := range ids {
		sg, err := r.Get(ctx, id)
		if err != nil {
			if err == storages.ErrSagaNotFound {
				// deleted behind our back; drop the orphaned score
				_ = r.client.ZRem(ctx, deadlinesKey, id).Err()
				continue
			}
			return nil, err
		}
		if !sg.IsTerminal() {
			sagas = append(sagas, *sg)
		}
	}

	return sagas, nil
}

func (r *SagaStorageRedis) Close(ctx context.Context) error {
	return r.client.Close()
}
