// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"save-vault-go/internal/config"
	"save-vault-go/internal/model"
	"save-vault-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端并确保存档搜索索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则按存档文档结构创建它。
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 存档搜索文档：按游戏标题 (label) 和文件名检索，user_id 过滤
	mapping := `{
		"mappings": {
			"properties": {
				"user_id": { "type": "long" },
				"file_name": {
					"type": "text",
					"fields": { "keyword": { "type": "keyword" } }
				},
				"label": { "type": "text" },
				"size": { "type": "long" },
				"uploaded_at": { "type": "date", "format": "epoch_second" }
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexSaveDocument 将单个存档文档写入索引（同名覆盖）。
func IndexSaveDocument(ctx context.Context, indexName string, doc model.SaveDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.DocID(),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引存档文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index save document")
	}
	return nil
}

// DeleteSaveDocument 从索引中删除一个存档文档。文档不存在不视为错误。
func DeleteSaveDocument(ctx context.Context, indexName string, userID uint, fileName string) error {
	req := esapi.DeleteRequest{
		Index:      indexName,
		DocumentID: model.SaveDocument{UserID: userID, FileName: fileName}.DocID(),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		log.Errorf("从 Elasticsearch 删除存档文档出错: %s", res.String())
		return errors.New("failed to delete save document")
	}
	return nil
}

// PurgeUserDocuments 删除某用户在索引中的全部存档文档（注销账号时调用）。
func PurgeUserDocuments(ctx context.Context, indexName string, userID uint) error {
	query := fmt.Sprintf(`{"query":{"term":{"user_id":%d}}}`, userID)

	res, err := ESClient.DeleteByQuery(
		[]string{indexName},
		strings.NewReader(query),
		ESClient.DeleteByQuery.WithContext(ctx),
		ESClient.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按用户清理 Elasticsearch 存档文档出错: %s", res.String())
		return errors.New("failed to purge user documents")
	}
	return nil
}
