package market

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

const numShards = 16

// ShardedTokenMap is a sharded map for token metadata to reduce lock
// contention on the quote hot path.
type ShardedTokenMap struct {
	shards [numShards]tokenShard
}

type tokenShard struct {
	mu     sync.RWMutex
	tokens map[solana.PublicKey]*TokenInfo
}

func NewShardedTokenMap() *ShardedTokenMap {
	m := &ShardedTokenMap{}
	for i := 0; i < numShards; i++ {
		m.shards[i].tokens = make(map[solana.PublicKey]*TokenInfo)
	}
	return m
}

// getShard returns the shard for a given mint, keyed on the first byte.
func (m *ShardedTokenMap) getShard(key solana.PublicKey) *tokenShard {
	return &m.shards[key[0]%numShards]
}

func (m *ShardedTokenMap) Get(key solana.PublicKey) (*TokenInfo, bool) {
	shard := m.getShard(key)
	shard.mu.RLock()
	info, ok := shard.tokens[key]
	shard.mu.RUnlock()
	return info, ok
}

func (m *ShardedTokenMap) Set(key solana.PublicKey, info *TokenInfo) {
	shard := m.getShard(key)
	shard.mu.Lock()
	shard.tokens[key] = info
	shard.mu.Unlock()
}

func (m *ShardedTokenMap) Delete(key solana.PublicKey) {
	shard := m.getShard(key)
	shard.mu.Lock()
	delete(shard.tokens, key)
	shard.mu.Unlock()
}

func (m *ShardedTokenMap) Len() int {
	total := 0
	for i := 0; i < numShards; i++ {
		m.shards[i].mu.RLock()
		total += len(m.shards[i].tokens)
		m.shards[i].mu.RUnlock()
	}
	return total
}
