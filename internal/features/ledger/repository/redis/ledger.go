package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"giveaway-miniapp/internal/features/ledger/models"
	"giveaway-miniapp/internal/features/ledger/repository"
)

const (
	keyPrefixUser         = "user:"
	keyPrefixEntry        = "giveaway_entries:"
	keyPrefixEntriesIndex = "giveaway:"

	fieldID      = "id"
	fieldName    = "name"
	fieldAvatar  = "avatar"
	fieldTickets = "tickets"
	fieldInvites = "invites"
)

func makeUserKey(userID string) string {
	return keyPrefixUser + userID
}

func makeJoinedKey(userID string) string {
	return keyPrefixUser + userID + ":joined"
}

func makeEntryKey(giveawayID, userID string) string {
	return keyPrefixEntry + models.EntryKey(giveawayID, userID)
}

func makeEntriesIndexKey(giveawayID string) string {
	return keyPrefixEntriesIndex + giveawayID + ":entries"
}

// KEYS[1] profile hash; ARGV = field/value pairs.
// Fields are set only when missing: a hash left by incrementScript gets its
// name and avatar but keeps tickets. Returns 1 only if the hash did not exist.
var createProfileScript = redis.NewScript(`
local existed = redis.call('EXISTS', KEYS[1])
for i = 1, #ARGV, 2 do
	redis.call('HSETNX', KEYS[1], ARGV[i], ARGV[i + 1])
end
if existed == 1 then
	return 0
end
return 1
`)

// KEYS[1] profile hash, KEYS[2] joined set; ARGV[1] delta, ARGV[2] giveaway id, ARGV[3] user id.
// Returns -1 when the giveaway is already in the joined set.
var incrementScript = redis.NewScript(`
if redis.call('SADD', KEYS[2], ARGV[2]) == 0 then
	return -1
end
redis.call('HSETNX', KEYS[1], 'id', ARGV[3])
return redis.call('HINCRBY', KEYS[1], 'tickets', ARGV[1])
`)

type redisLedger struct {
	client redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) repository.Ledger {
	return &redisLedger{client: client}
}

func (l *redisLedger) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	pipe := l.client.Pipeline()
	fieldsCmd := pipe.HGetAll(ctx, makeUserKey(userID))
	joinedCmd := pipe.SMembers(ctx, makeJoinedKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, nil
	}

	p := models.NewProfile(userID, fields[fieldName], fields[fieldAvatar])
	var err error
	if v := fields[fieldTickets]; v != "" {
		if p.Tickets, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("profile %s: bad tickets value %q: %w", userID, v, err)
		}
	}
	if v := fields[fieldInvites]; v != "" {
		if p.Invites, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("profile %s: bad invites value %q: %w", userID, v, err)
		}
	}
	joined := joinedCmd.Val()
	sort.Strings(joined)
	p.JoinedGiveaways = append(p.JoinedGiveaways, joined...)
	return p, nil
}

func (l *redisLedger) CreateProfile(ctx context.Context, initial *models.UserProfile) (bool, error) {
	args := []interface{}{
		fieldID, initial.ID,
		fieldName, initial.Name,
		fieldAvatar, initial.AvatarRef,
		fieldTickets, initial.Tickets,
		fieldInvites, initial.Invites,
	}
	created, err := createProfileScript.Run(ctx, l.client, []string{makeUserKey(initial.ID)}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("create profile %s: %w", initial.ID, err)
	}
	if created == 1 && len(initial.JoinedGiveaways) > 0 {
		members := make([]interface{}, len(initial.JoinedGiveaways))
		for i, id := range initial.JoinedGiveaways {
			members[i] = id
		}
		if err := l.client.SAdd(ctx, makeJoinedKey(initial.ID), members...).Err(); err != nil {
			return true, fmt.Errorf("create profile %s: joined set: %w", initial.ID, err)
		}
	}
	return created == 1, nil
}

func (l *redisLedger) IncrementTickets(ctx context.Context, userID string, delta int64, giveawayID string) error {
	keys := []string{makeUserKey(userID), makeJoinedKey(userID)}
	if err := incrementScript.Run(ctx, l.client, keys, delta, giveawayID, userID).Err(); err != nil {
		return fmt.Errorf("increment tickets %s/%s: %w", userID, giveawayID, err)
	}
	return nil
}

func (l *redisLedger) PutEntryRecord(ctx context.Context, record *models.EntryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal entry record: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, makeEntryKey(record.GiveawayID, record.UserID), data, 0)
		pipe.ZAddNX(ctx, makeEntriesIndexKey(record.GiveawayID), redis.Z{
			Score:  float64(record.JoinedAt.UnixMilli()),
			Member: record.UserID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put entry record %s: %w", record.Key(), err)
	}
	return nil
}

func (l *redisLedger) ListEntries(ctx context.Context, giveawayID string) ([]*models.EntryRecord, error) {
	userIDs, err := l.client.ZRange(ctx, makeEntriesIndexKey(giveawayID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries %s: %w", giveawayID, err)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(userIDs))
	for i, uid := range userIDs {
		keys[i] = makeEntryKey(giveawayID, uid)
	}
	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries %s: %w", giveawayID, err)
	}

	records := make([]*models.EntryRecord, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// индекс есть, а записи нет: пропускаем
			continue
		}
		var rec models.EntryRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", keys[i], err)
		}
		records = append(records, &rec)
	}
	return records, nil
}
