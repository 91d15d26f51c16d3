package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"save-vault-go/internal/config"
	"save-vault-go/internal/model"
	"save-vault-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService 接口定义了存档搜索操作。
type SearchService interface {
	SearchSaves(ctx context.Context, query string, topK int, userID uint) ([]model.SearchResultDTO, error)
}

// searchService 是 SearchService 接口的实现，基于 Elasticsearch 的存档索引。
type searchService struct {
	esClient *elasticsearch.Client
	esCfg    config.ElasticsearchConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient *elasticsearch.Client, esCfg config.ElasticsearchConfig) SearchService {
	return &searchService{esClient: esClient, esCfg: esCfg}
}

// SearchSaves 按游戏标题（label）和文件名搜索某用户的存档。
// 搜索范围以 user_id 过滤，严格限定在当前用户自己的存档内。
func (s *searchService) SearchSaves(ctx context.Context, query string, topK int, userID uint) ([]model.SearchResultDTO, error) {
	if topK <= 0 {
		topK = 20
	}

	// 1. 构建查询：label 权重高于文件名
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"label^2", "file_name"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_id": userID},
				},
			},
		},
		"size": topK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	// 2. 执行搜索
	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.esCfg.IndexName),
		s.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	// 3. 解析结果
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.SaveDocument `json:"_source"`
				Score  float64            `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.SearchResultDTO, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.SearchResultDTO{
			FileName:   hit.Source.FileName,
			Label:      hit.Source.Label,
			Size:       hit.Source.Size,
			UploadedAt: hit.Source.UploadedAt,
			Score:      hit.Score,
		})
	}
	return results, nil
}
