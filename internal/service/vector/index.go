// Package vector 提供基于HNSW的内存向量索引
// 索引项以文件ID标识，支持快照持久化，用于语义检索
package vector

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/weiwangfds/snapshare/config"
)

// Payload 索引项携带的业务属性
// 检索命中后用于权限过滤和结果展示，避免逐条回查数据库
type Payload struct {
	OwnerID     uint   `json:"owner_id"`     // 文件所属用户ID
	DisplayName string `json:"display_name"` // 文件展示名
}

// Match 向量检索命中结果
type Match struct {
	ID      string  `json:"id"`      // 文件ID
	Score   float32 `json:"score"`   // 相似度得分，0到1，越大越相似
	Payload Payload `json:"payload"` // 业务属性
}

// Index 向量索引接口
type Index interface {
	// Upsert 插入或更新索引项，同ID重复插入视为更新
	Upsert(id string, vec []float32, payload Payload) error

	// Query 检索与查询向量最相似的topK个索引项
	Query(vec []float32, topK int) ([]Match, error)

	// DeleteByIDs 按ID批量删除索引项，不存在的ID忽略
	DeleteByIDs(ids []string) error

	// Contains 检查ID是否在索引中
	Contains(id string) bool

	// Count 返回有效索引项数量
	Count() int

	// Save 持久化索引快照到磁盘
	Save() error

	// Load 从磁盘加载索引快照，快照不存在时保持空索引
	Load() error
}

// HNSWIndex 基于coder/hnsw的索引实现
// 删除采用惰性策略：图节点保留，仅移除ID映射，检索时跳过孤儿节点
type HNSWIndex struct {
	mu           sync.RWMutex
	graph        *hnsw.Graph[uint64]
	snapshotPath string

	// 字符串ID与图内部键的双向映射
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[string]Payload
	nextKey  uint64

	// dims 首个入索引向量确定的维度，0表示尚未确定
	// 维度不一致的向量（例如换嵌入模型后加载旧快照）在进距离函数前被拒绝
	dims int
}

// indexMetadata 快照中与图并存的映射元数据
type indexMetadata struct {
	IDMap    map[string]uint64
	Payloads map[string]Payload
	NextKey  uint64
	Dims     int
}

// NewHNSWIndex 根据配置创建HNSW向量索引
func NewHNSWIndex(cfg config.VectorConfig) *HNSWIndex {
	m := cfg.M
	if m == 0 {
		m = 16
	}
	efSearch := cfg.EfSearch
	if efSearch == 0 {
		efSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = m
	graph.EfSearch = efSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:        graph,
		snapshotPath: cfg.SnapshotPath,
		idMap:        make(map[string]uint64),
		keyMap:       make(map[uint64]string),
		payloads:     make(map[string]Payload),
	}
}

// Upsert 插入或更新索引项
func (idx *HNSWIndex) Upsert(id string, vec []float32, payload Payload) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for id %s", id)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dims == 0 {
		idx.dims = len(vec)
	} else if len(vec) != idx.dims {
		return fmt.Errorf("vector dimension mismatch for id %s: got %d, index has %d", id, len(vec), idx.dims)
	}

	// 同ID更新走惰性删除：旧图节点留作孤儿，只换映射
	if existingKey, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, existingKey)
		delete(idx.idMap, id)
	}

	key := idx.nextKey
	idx.nextKey++

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	idx.graph.Add(hnsw.MakeNode(key, normalized))
	idx.idMap[id] = key
	idx.keyMap[key] = id
	idx.payloads[id] = payload
	return nil
}

// Query 检索最相似的topK个索引项
func (idx *HNSWIndex) Query(vec []float32, topK int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 || topK <= 0 {
		return []Match{}, nil
	}
	if idx.dims != 0 && len(vec) != idx.dims {
		return nil, fmt.Errorf("query vector dimension mismatch: got %d, index has %d", len(vec), idx.dims)
	}

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	// 惰性删除会留下孤儿节点，多取一些再过滤
	nodes := idx.graph.Search(normalized, topK*2)

	matches := make([]Match, 0, topK)
	for _, node := range nodes {
		id, exists := idx.keyMap[node.Key]
		if !exists {
			continue
		}
		distance := idx.graph.Distance(normalized, node.Value)
		matches = append(matches, Match{
			ID:      id,
			Score:   1.0 - distance/2.0,
			Payload: idx.payloads[id],
		})
		if len(matches) >= topK {
			break
		}
	}
	return matches, nil
}

// DeleteByIDs 按ID批量删除索引项
func (idx *HNSWIndex) DeleteByIDs(ids []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range ids {
		if key, exists := idx.idMap[id]; exists {
			delete(idx.keyMap, key)
			delete(idx.idMap, id)
			delete(idx.payloads, id)
		}
	}
	return nil
}

// Contains 检查ID是否在索引中
func (idx *HNSWIndex) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, exists := idx.idMap[id]
	return exists
}

// Count 返回有效索引项数量
func (idx *HNSWIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idMap)
}

// Save 持久化索引快照
// 先写临时文件再重命名，避免写一半的快照被加载
func (idx *HNSWIndex) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.snapshotPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(idx.snapshotPath), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmpPath := idx.snapshotPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := idx.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, idx.snapshotPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return idx.saveMetadata(idx.snapshotPath + ".meta")
}

// saveMetadata 持久化ID映射和业务属性
func (idx *HNSWIndex) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	meta := indexMetadata{
		IDMap:    idx.idMap,
		Payloads: idx.payloads,
		NextKey:  idx.nextKey,
		Dims:     idx.dims,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load 从磁盘加载索引快照
func (idx *HNSWIndex) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.snapshotPath == "" {
		return nil
	}
	if _, err := os.Stat(idx.snapshotPath); os.IsNotExist(err) {
		return nil
	}

	if err := idx.loadMetadata(idx.snapshotPath + ".meta"); err != nil {
		return err
	}

	file, err := os.Open(idx.snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	// Import需要io.ByteReader
	if err := idx.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}
	return nil
}

// loadMetadata 加载ID映射和业务属性
func (idx *HNSWIndex) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer file.Close()

	var meta indexMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	idx.idMap = meta.IDMap
	idx.payloads = meta.Payloads
	idx.nextKey = meta.NextKey
	idx.dims = meta.Dims
	idx.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		idx.keyMap[key] = id
	}
	return nil
}

// normalizeInPlace 将向量原地归一化为单位长度
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

var _ Index = (*HNSWIndex)(nil)
