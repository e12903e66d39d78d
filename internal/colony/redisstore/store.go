// Package redisstore keeps colonies in Redis. Each coordinate is a string
// key holding its owner; each owner is a hash. A Lua script performs the
// check-and-write atomically on the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"

	"github.com/redis/go-redis/v9"
)

const (
	insertOK           = 0
	insertCoordTaken   = 1
	insertOwnerSettled = 2
)

// KEYS: coordinate key, owner hash, owners set.
// ARGV: owner, label, galaxy, system, position, claimed_at millis.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 1
end
if redis.call('HEXISTS', KEYS[2], 'galaxy') == 1 then
	return 2
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[2], 'label', ARGV[2], 'galaxy', ARGV[3], 'system', ARGV[4], 'position', ARGV[5], 'claimed_at', ARGV[6])
redis.call('SADD', KEYS[3], ARGV[1])
return 0
`)

type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var _ colony.Store = (*Store)(nil)

func New(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	logger.Debug("Initializing redis colony store", "prefix", prefix)
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) coordKey(c coordinate.Coordinate) string {
	return s.prefix + "coord:" + c.String()
}

func (s *Store) ownerKey(o colony.Owner) string {
	return s.prefix + "owner:" + string(o)
}

func (s *Store) ownersKey() string {
	return s.prefix + "owners"
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) ListClaims(ctx context.Context) ([]colony.Record, error) {
	owners, err := s.client.SMembers(ctx, s.ownersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	if len(owners) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(owners))
	for i, owner := range owners {
		cmds[i] = pipe.HGetAll(ctx, s.ownerKey(colony.Owner(owner)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read owners: %w", err)
	}

	records := make([]colony.Record, 0, len(owners))
	for i, owner := range owners {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		record, err := recordFromHash(colony.Owner(owner), fields)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) GetProfile(ctx context.Context, owner colony.Owner) (*colony.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.ownerKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	record, err := recordFromHash(owner, fields)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) GetClaim(ctx context.Context, coord coordinate.Coordinate) (*colony.Claim, error) {
	owner, err := s.client.Get(ctx, s.coordKey(coord)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coordinate: %w", err)
	}

	fields, err := s.client.HGetAll(ctx, s.ownerKey(colony.Owner(owner))).Result()
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}

	claim := colony.Claim{
		Coordinate: coord,
		Owner:      colony.Owner(owner),
		Label:      fields["label"],
	}
	if ms, err := strconv.ParseInt(fields["claimed_at"], 10, 64); err == nil {
		claim.ClaimedAt = time.UnixMilli(ms).UTC()
	}
	return &claim, nil
}

func (s *Store) InsertClaim(ctx context.Context, coord coordinate.Coordinate, owner colony.Owner, label string) (*colony.Claim, error) {
	logger := s.logger.With(
		"component", "redis_store",
		"operation", "insert_claim",
		"coordinate", coord.String(),
		"owner", owner,
	)

	claimedAt := s.now().UTC().Truncate(time.Millisecond)
	keys := []string{s.coordKey(coord), s.ownerKey(owner), s.ownersKey()}
	result, err := insertScript.Run(ctx, s.client, keys,
		string(owner), label, coord.Galaxy, coord.System, coord.Position, claimedAt.UnixMilli(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("insert claim script: %w", err)
	}

	switch result {
	case insertOK:
		logger.Info("Claim inserted")
		return &colony.Claim{Coordinate: coord, Owner: owner, Label: label, ClaimedAt: claimedAt}, nil
	case insertCoordTaken:
		logger.Debug("Coordinate already claimed")
		return nil, colony.ErrCoordinateTaken
	case insertOwnerSettled:
		logger.Debug("Owner already holds a coordinate")
		return nil, colony.ErrOwnerSettled
	default:
		return nil, fmt.Errorf("insert claim script: unexpected result %d", result)
	}
}

func (s *Store) EnsureProfile(ctx context.Context, owner colony.Owner, label string) error {
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, s.ownerKey(owner), "label", label)
	pipe.SAdd(ctx, s.ownersKey(), string(owner))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func recordFromHash(owner colony.Owner, fields map[string]string) (colony.Record, error) {
	record := colony.Record{Owner: owner, Label: fields["label"]}

	var err error
	if record.Galaxy, err = optionalInt(fields, "galaxy"); err != nil {
		return colony.Record{}, err
	}
	if record.System, err = optionalInt(fields, "system"); err != nil {
		return colony.Record{}, err
	}
	if record.Position, err = optionalInt(fields, "position"); err != nil {
		return colony.Record{}, err
	}
	if raw, ok := fields["claimed_at"]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return colony.Record{}, fmt.Errorf("owner %s: bad claimed_at %q", owner, raw)
		}
		t := time.UnixMilli(ms).UTC()
		record.ClaimedAt = &t
	}
	return record, nil
}

func optionalInt(fields map[string]string, name string) (*int, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("bad %s %q: %w", name, raw, err)
	}
	return &v, nil
}
