package server

import (
	"voxelrelay.ai/internal/sim/coords"
)

// SubscriptionKey names one chunk in one dimension of one world.
type SubscriptionKey struct {
	World     string
	Dimension string
	Chunk     coords.ChunkPos
}

// ChunkSubscriptions maps chunks to the clients that can see them. The view
// system is its only writer; broadcasts only read it.
type ChunkSubscriptions struct {
	subs     map[SubscriptionKey]map[ClientID]struct{}
	byClient map[ClientID]map[SubscriptionKey]struct{}
}

func NewChunkSubscriptions() *ChunkSubscriptions {
	return &ChunkSubscriptions{
		subs:     map[SubscriptionKey]map[ClientID]struct{}{},
		byClient: map[ClientID]map[SubscriptionKey]struct{}{},
	}
}

// SubscriptionsFor returns the clients subscribed to key. The set must not
// be modified and is nil when nobody is subscribed.
func (s *ChunkSubscriptions) SubscriptionsFor(key SubscriptionKey) map[ClientID]struct{} {
	return s.subs[key]
}

func (s *ChunkSubscriptions) Subscribe(id ClientID, key SubscriptionKey) {
	set := s.subs[key]
	if set == nil {
		set = map[ClientID]struct{}{}
		s.subs[key] = set
	}
	set[id] = struct{}{}

	keys := s.byClient[id]
	if keys == nil {
		keys = map[SubscriptionKey]struct{}{}
		s.byClient[id] = keys
	}
	keys[key] = struct{}{}
}

func (s *ChunkSubscriptions) Unsubscribe(id ClientID, key SubscriptionKey) {
	if set := s.subs[key]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(s.subs, key)
		}
	}
	if keys := s.byClient[id]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byClient, id)
		}
	}
}

func (s *ChunkSubscriptions) UnsubscribeAll(id ClientID) {
	for key := range s.byClient[id] {
		if set := s.subs[key]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(s.subs, key)
			}
		}
	}
	delete(s.byClient, id)
}

// IsSubscribed reports whether id is subscribed to key.
func (s *ChunkSubscriptions) IsSubscribed(id ClientID, key SubscriptionKey) bool {
	_, ok := s.subs[key][id]
	return ok
}

// KeyCount is the number of chunks with at least one subscriber.
func (s *ChunkSubscriptions) KeyCount() int { return len(s.subs) }
