package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/sentinel"
)

const defaultRedisKeyPrefix = "trustlink"

// Redis stores the registry in Redis so several registry processes can share
// one substrate.
//
// Key layout:
//
//	<prefix>:admin                    string
//	<prefix>:issuer:<address>         "1" while registered
//	<prefix>:attestation:<id>         JSON record
//	<prefix>:index:subject:<address>  list of ids, RPUSH order
//	<prefix>:index:issuer:<address>   list of ids, RPUSH order
//
// Units of work use WATCH/MULTI/EXEC: every key read inside a unit is watched,
// writes are queued and sent in one MULTI. A concurrent change to a watched
// key aborts EXEC and the unit is re-run. EXEC and the unit's commit hooks
// run under commitMu so hooks fire in commit order.
type Redis struct {
	client     *redis.Client
	prefix     string
	maxRetries int
	commitMu   sync.Mutex
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix namespaces every key, e.g. per deployment.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisMaxRetries bounds re-runs after optimistic lock failures.
func WithRedisMaxRetries(n int) RedisOption {
	return func(s *Redis) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewRedis constructs a Redis-backed registry store.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{
		client:     client,
		prefix:     defaultRedisKeyPrefix,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Redis) adminKey() string {
	return s.prefix + ":admin"
}

func (s *Redis) issuerKey(address id.Address) string {
	return s.prefix + ":issuer:" + address.String()
}

func (s *Redis) attestationKey(attestationID id.AttestationID) string {
	return s.prefix + ":attestation:" + attestationID.String()
}

func (s *Redis) indexKey(kind models.IndexKind, owner id.Address) string {
	return s.prefix + ":index:" + kind.String() + ":" + owner.String()
}

func (s *Redis) Admin(ctx context.Context) (id.Address, error) {
	admin, err := s.readAdmin(ctx, s.client)
	return admin, markUnavailable(err)
}

func (s *Redis) IsIssuer(ctx context.Context, address id.Address) (bool, error) {
	ok, err := s.readIssuer(ctx, s.client, address)
	return ok, markUnavailable(err)
}

func (s *Redis) FindByID(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	a, err := s.readAttestation(ctx, s.client, attestationID)
	return a, markUnavailable(err)
}

// FindByIDs resolves a page with a single MGET.
func (s *Redis) FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	if len(ids) == 0 {
		return []*models.Attestation{}, nil
	}
	keys := make([]string, len(ids))
	for i, attestationID := range ids {
		keys[i] = s.attestationKey(attestationID)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, markUnavailable(fmt.Errorf("mget attestations: %w", err))
	}
	out := make([]*models.Attestation, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("attestation %s: %w", ids[i], sentinel.ErrNotFound)
		}
		a, err := decodeAttestation(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Redis) ListIndex(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	if limit == 0 {
		return []id.AttestationID{}, nil
	}
	if start < 0 {
		start = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(start) + int64(limit) - 1
	}
	values, err := s.client.LRange(ctx, s.indexKey(kind, owner), int64(start), stop).Result()
	if err != nil {
		return nil, markUnavailable(fmt.Errorf("read %s index: %w", kind, err))
	}
	return toIDs(values), nil
}

// RunInTx runs fn under WATCH and commits its queued writes with MULTI/EXEC.
// fn may run more than once when a watched key changes underneath it.
func (s *Redis) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return retryConflicts(ctx, s.maxRetries, func() error {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := newRedisTx(s, rtx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.commit(ctx)
		})
		if errors.Is(err, redis.TxFailedErr) {
			return sentinel.ErrConflict
		}
		return markUnavailable(err)
	})
}

func (s *Redis) readAdmin(ctx context.Context, c redis.Cmdable) (id.Address, error) {
	v, err := c.Get(ctx, s.adminKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read admin: %w", err)
	}
	return id.Address(v), nil
}

func (s *Redis) readIssuer(ctx context.Context, c redis.Cmdable, address id.Address) (bool, error) {
	n, err := c.Exists(ctx, s.issuerKey(address)).Result()
	if err != nil {
		return false, fmt.Errorf("read issuer: %w", err)
	}
	return n == 1, nil
}

func (s *Redis) readAttestation(ctx context.Context, c redis.Cmdable, attestationID id.AttestationID) (*models.Attestation, error) {
	raw, err := c.Get(ctx, s.attestationKey(attestationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read attestation: %w", err)
	}
	return decodeAttestation(raw)
}

// redisTx watches every key it reads and queues writes until commit.
type redisTx struct {
	store        *Redis
	rtx          *redis.Tx
	admin        id.Address
	issuers      map[id.Address]bool
	attestations map[id.AttestationID]*models.Attestation
	appended     map[indexKey][]id.AttestationID
	ops          []func(ctx context.Context, pipe redis.Pipeliner) error
	hooks        []func()
}

func newRedisTx(s *Redis, rtx *redis.Tx) *redisTx {
	return &redisTx{
		store:        s,
		rtx:          rtx,
		issuers:      make(map[id.Address]bool),
		attestations: make(map[id.AttestationID]*models.Attestation),
		appended:     make(map[indexKey][]id.AttestationID),
	}
}

func (t *redisTx) watch(ctx context.Context, key string) error {
	if err := t.rtx.Watch(ctx, key).Err(); err != nil {
		return fmt.Errorf("watch %s: %w", key, err)
	}
	return nil
}

func (t *redisTx) Admin(ctx context.Context) (id.Address, error) {
	if !t.admin.IsNil() {
		return t.admin, nil
	}
	if err := t.watch(ctx, t.store.adminKey()); err != nil {
		return "", err
	}
	return t.store.readAdmin(ctx, t.rtx)
}

func (t *redisTx) IsIssuer(ctx context.Context, address id.Address) (bool, error) {
	if present, ok := t.issuers[address]; ok {
		return present, nil
	}
	if err := t.watch(ctx, t.store.issuerKey(address)); err != nil {
		return false, err
	}
	return t.store.readIssuer(ctx, t.rtx, address)
}

func (t *redisTx) FindByID(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	if a, ok := t.attestations[attestationID]; ok {
		return a.Clone(), nil
	}
	if err := t.watch(ctx, t.store.attestationKey(attestationID)); err != nil {
		return nil, err
	}
	return t.store.readAttestation(ctx, t.rtx, attestationID)
}

func (t *redisTx) FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	out := make([]*models.Attestation, 0, len(ids))
	for _, attestationID := range ids {
		a, err := t.FindByID(ctx, attestationID)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *redisTx) ListIndex(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	key := t.store.indexKey(kind, owner)
	if err := t.watch(ctx, key); err != nil {
		return nil, err
	}
	values, err := t.rtx.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", kind, err)
	}
	return page(toIDs(values), t.appended[indexKey{kind, owner}], start, limit), nil
}

func (t *redisTx) SetAdmin(_ context.Context, admin id.Address) error {
	t.admin = admin
	key := t.store.adminKey()
	t.ops = append(t.ops, func(ctx context.Context, pipe redis.Pipeliner) error {
		return pipe.Set(ctx, key, admin.String(), 0).Err()
	})
	return nil
}

func (t *redisTx) AddIssuer(_ context.Context, address id.Address) error {
	t.issuers[address] = true
	key := t.store.issuerKey(address)
	t.ops = append(t.ops, func(ctx context.Context, pipe redis.Pipeliner) error {
		return pipe.Set(ctx, key, "1", 0).Err()
	})
	return nil
}

func (t *redisTx) RemoveIssuer(_ context.Context, address id.Address) error {
	t.issuers[address] = false
	key := t.store.issuerKey(address)
	t.ops = append(t.ops, func(ctx context.Context, pipe redis.Pipeliner) error {
		return pipe.Del(ctx, key).Err()
	})
	return nil
}

func (t *redisTx) Create(ctx context.Context, attestation *models.Attestation) error {
	if _, err := t.FindByID(ctx, attestation.ID); err == nil {
		return sentinel.ErrAlreadyUsed
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	return t.put(attestation)
}

func (t *redisTx) Update(ctx context.Context, attestation *models.Attestation) error {
	if _, err := t.FindByID(ctx, attestation.ID); err != nil {
		return err
	}
	return t.put(attestation)
}

func (t *redisTx) put(attestation *models.Attestation) error {
	raw, err := json.Marshal(attestation)
	if err != nil {
		return fmt.Errorf("marshal attestation: %w", err)
	}
	t.attestations[attestation.ID] = attestation.Clone()
	key := t.store.attestationKey(attestation.ID)
	t.ops = append(t.ops, func(ctx context.Context, pipe redis.Pipeliner) error {
		return pipe.Set(ctx, key, raw, 0).Err()
	})
	return nil
}

func (t *redisTx) AppendIndex(_ context.Context, kind models.IndexKind, owner id.Address, attestationID id.AttestationID) error {
	k := indexKey{kind, owner}
	t.appended[k] = append(t.appended[k], attestationID)
	key := t.store.indexKey(kind, owner)
	t.ops = append(t.ops, func(ctx context.Context, pipe redis.Pipeliner) error {
		return pipe.RPush(ctx, key, attestationID.String()).Err()
	})
	return nil
}

func (t *redisTx) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *redisTx) commit(ctx context.Context) error {
	t.store.commitMu.Lock()
	defer t.store.commitMu.Unlock()

	if len(t.ops) > 0 {
		_, err := t.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range t.ops {
				if err := op(ctx, pipe); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	for _, hook := range t.hooks {
		hook()
	}
	return nil
}

func decodeAttestation(raw string) (*models.Attestation, error) {
	var a models.Attestation
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("unmarshal attestation: %w", err)
	}
	return &a, nil
}

func toIDs(values []string) []id.AttestationID {
	out := make([]id.AttestationID, len(values))
	for i, v := range values {
		out[i] = id.AttestationID(v)
	}
	return out
}
