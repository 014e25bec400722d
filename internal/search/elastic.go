package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"backoffice/internal/domain"
)

// ElasticIndex keeps product documents in one Elasticsearch index.
type ElasticIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticIndex(cfg elasticsearch.Config, index string) (*ElasticIndex, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticIndex{es: es, index: index}, nil
}

const elasticMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "productNum":   {"type": "keyword"},
      "name":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "brand":        {"type": "text", "fields": {"raw": {"type": "keyword", "normalizer": "lower"}}},
      "categoryCode": {"type": "keyword"},
      "categoryName": {"type": "text"},
      "price":        {"type": "scaled_float", "scaling_factor": 100},
      "stock":        {"type": "long"},
      "soldQuantity": {"type": "long"},
      "coupons":      {"type": "object", "enabled": false}
    }
  },
  "settings": {
    "analysis": {"normalizer": {"lower": {"type": "custom", "filter": ["lowercase"]}}}
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(strings.NewReader(elasticMapping)))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res, "create index")
}

func (e *ElasticIndex) Put(ctx context.Context, doc domain.ProductDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal product document: %w", err)
	}
	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
		e.es.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res, "index document")
}

func (e *ElasticIndex) Get(ctx context.Context, id int64) (domain.ProductDocument, bool, error) {
	var doc domain.ProductDocument
	res, err := e.es.Get(e.index, strconv.FormatInt(id, 10), e.es.Get.WithContext(ctx))
	if err != nil {
		return doc, false, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return doc, false, nil
	}
	if err := responseError(res, "get document"); err != nil {
		return doc, false, err
	}
	var out struct {
		Found  bool                   `json:"found"`
		Source domain.ProductDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return doc, false, fmt.Errorf("failed to decode get response: %w", err)
	}
	return out.Source, out.Found, nil
}

func (e *ElasticIndex) Delete(ctx context.Context, id int64) error {
	res, err := e.es.Delete(e.index, strconv.FormatInt(id, 10), e.es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "delete document")
}

func (e *ElasticIndex) Search(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	body, err := json.Marshal(elasticQuery(q))
	if err != nil {
		return Page{}, err
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return Page{}, err
	}
	defer res.Body.Close()
	if err := responseError(res, "search"); err != nil {
		return Page{}, err
	}
	var out struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source domain.ProductDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Page{}, fmt.Errorf("failed to decode search response: %w", err)
	}
	p := Page{Items: make([]domain.ProductDocument, 0, len(out.Hits.Hits)), Total: out.Hits.Total.Value, Page: q.Page, Size: q.Size}
	for _, h := range out.Hits.Hits {
		p.Items = append(p.Items, h.Source)
	}
	return p, nil
}

func elasticQuery(q Query) map[string]any {
	var must, filter []any
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"name^2", "brand", "productNum"},
			},
		})
	}
	if q.Name != "" {
		must = append(must, map[string]any{"match": map[string]any{"name": q.Name}})
	}
	if q.Category != "" {
		filter = append(filter, map[string]any{"prefix": map[string]any{"categoryCode": q.Category}})
	}
	if q.Brand != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"brand.raw": strings.ToLower(q.Brand)}})
	}
	boolQ := map[string]any{}
	if len(must) > 0 {
		boolQ["must"] = must
	}
	if len(filter) > 0 {
		boolQ["filter"] = filter
	}
	query := map[string]any{"match_all": map[string]any{}}
	if len(boolQ) > 0 {
		query = map[string]any{"bool": boolQ}
	}
	return map[string]any{
		"query": query,
		"from":  q.offset(),
		"size":  q.Size,
		"sort":  []any{map[string]any{"id": "asc"}},
	}
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), strings.TrimSpace(string(b)))
}
