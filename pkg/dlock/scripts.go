package dlock

import "github.com/redis/go-redis/v9"

// All scripts read the store clock through TIME so every participant shares
// one notion of "now" regardless of local clock skew.

// acquireScript: KEYS[1]=lock key, ARGV[1]=candidate record, ARGV[2]=lease ms.
// Returns the new reentrancy count, or 0 when another holder owns the key.
var acquireScript = redis.NewScript(`
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local lease = tonumber(ARGV[2])
local candidate = cjson.decode(ARGV[1])
local current = redis.call('GET', KEYS[1])
if not current then
    candidate.count = 1
    candidate.expireAt = now + lease
    redis.call('SET', KEYS[1], cjson.encode(candidate), 'PX', lease)
    return 1
end
local record = cjson.decode(current)
if record.token ~= candidate.token then
    return 0
end
record.count = record.count + 1
record.expireAt = now + lease
redis.call('SET', KEYS[1], cjson.encode(record), 'PX', lease)
return record.count
`)

// releaseScript: KEYS[1]=lock key, ARGV[1]=candidate record.
// Returns 1 on release (including an already absent key) and 0 when another
// holder owns the key. A partial release keeps the remaining lease.
var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
    return 1
end
local record = cjson.decode(current)
if record.token ~= cjson.decode(ARGV[1]).token then
    return 0
end
if record.count > 1 then
    local t = redis.call('TIME')
    local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
    local remaining = record.expireAt - now
    if remaining < 1 then
        remaining = 1
    end
    record.count = record.count - 1
    redis.call('SET', KEYS[1], cjson.encode(record), 'PX', math.floor(remaining))
    return 1
end
redis.call('DEL', KEYS[1])
return 1
`)

// renewScript: KEYS[1]=lock key, ARGV[1]=candidate record, ARGV[2]=lease ms.
// Returns 1 when the lease was re-armed and 0 when the record is gone or
// belongs to another holder.
var renewScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
    return 0
end
local record = cjson.decode(current)
if record.token ~= cjson.decode(ARGV[1]).token then
    return 0
end
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local lease = tonumber(ARGV[2])
record.expireAt = now + lease
redis.call('SET', KEYS[1], cjson.encode(record), 'PX', lease)
return 1
`)
