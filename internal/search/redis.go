package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"backoffice/internal/domain"
)

// RedisIndex stores each document as a JSON string plus a set of known ids.
// Filtering happens client side.
type RedisIndex struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIndex(client redis.UniversalClient, prefix string) *RedisIndex {
	return &RedisIndex{client: client, prefix: prefix}
}

func (r *RedisIndex) docKey(id int64) string {
	return r.prefix + "product:" + strconv.FormatInt(id, 10)
}
func (r *RedisIndex) idsKey() string { return r.prefix + "products" }

func (r *RedisIndex) Put(ctx context.Context, doc domain.ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal product document: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.docKey(doc.ID), data, 0)
		p.SAdd(ctx, r.idsKey(), doc.ID)
		return nil
	})
	return err
}

func (r *RedisIndex) Get(ctx context.Context, id int64) (domain.ProductDocument, bool, error) {
	var doc domain.ProductDocument
	data, err := r.client.Get(ctx, r.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return doc, false, nil
		}
		return doc, false, fmt.Errorf("failed to get product document from redis: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, false, fmt.Errorf("failed to unmarshal product document: %w", err)
	}
	return doc, true, nil
}

func (r *RedisIndex) Delete(ctx context.Context, id int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.docKey(id))
		p.SRem(ctx, r.idsKey(), id)
		return nil
	})
	return err
}

func (r *RedisIndex) Search(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	members, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return Page{}, err
	}
	if len(members) == 0 {
		return filterPage(nil, q), nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, r.docKey(id))
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Page{}, err
	}
	docs := make([]domain.ProductDocument, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		var d domain.ProductDocument
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			return Page{}, fmt.Errorf("failed to unmarshal product document: %w", err)
		}
		docs = append(docs, d)
	}
	return filterPage(docs, q), nil
}
