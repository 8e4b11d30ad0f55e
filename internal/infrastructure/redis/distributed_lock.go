package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
}

// LockManager は分散ロックを管理する
// 期限切れ回収のように複数インスタンスで同時に走らせる必要のない処理の排他に使う
type LockManager struct {
	client   *redis.Client
	newToken func() string
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client, newToken: uuid.NewString}
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := m.newToken()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
	}, nil
}

// Release はロックを解放する
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// TickGuard は定期処理の1回分を複数インスタンス間で排他する
type TickGuard struct {
	manager *LockManager
	key     string
	ttl     time.Duration
}

// NewTickGuard は key のロックを ttl の間保持する TickGuard を作成する
// ttl は処理が異常終了した場合にロックが残り続ける時間の上限になる
func NewTickGuard(manager *LockManager, key string, ttl time.Duration) *TickGuard {
	return &TickGuard{manager: manager, key: key, ttl: ttl}
}

// Acquire はロックを取得し、解放関数を返す
// 他のインスタンスが保持中の場合は ErrLockNotAcquired を返す
func (g *TickGuard) Acquire(ctx context.Context) (func(context.Context) error, error) {
	lock, err := g.manager.AcquireLock(ctx, g.key, g.ttl)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}
