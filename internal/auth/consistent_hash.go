package auth

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
)

// ConsistentHashRing 一致性哈希环，用于把 token 缓存 key 分散到不同鉴权节点前缀下
type ConsistentHashRing struct {
	hash     func(data []byte) uint32
	replicas int
	keys     []uint32 // 已排序的虚拟节点哈希
	owners   map[uint32]string
	nodes    map[string]struct{}
	mu       sync.RWMutex
}

// NewConsistentHashRing 创建哈希环，nodes 为空时生成一个默认节点
func NewConsistentHashRing(nodes []string, replicas int) *ConsistentHashRing {
	if replicas <= 0 {
		replicas = 50
	}
	if len(nodes) == 0 {
		nodes = []string{"auth-node-default"}
	}
	ch := &ConsistentHashRing{
		hash:     crc32.ChecksumIEEE,
		replicas: replicas,
		owners:   make(map[uint32]string),
		nodes:    make(map[string]struct{}),
	}
	ch.Add(nodes...)
	return ch
}

// Add 批量添加节点，重复节点忽略
func (c *ConsistentHashRing) Add(nodes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, node := range nodes {
		if _, exists := c.nodes[node]; exists {
			continue
		}
		c.nodes[node] = struct{}{}
		for i := 0; i < c.replicas; i++ {
			h := c.hash([]byte(node + "#" + strconv.Itoa(i)))
			c.keys = append(c.keys, h)
			c.owners[h] = node
		}
	}
	sort.Slice(c.keys, func(i, j int) bool { return c.keys[i] < c.keys[j] })
}

// Len 实际节点数
func (c *ConsistentHashRing) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// GetNode 根据 key 获取负责的节点
func (c *ConsistentHashRing) GetNode(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.keys) == 0 {
		return ""
	}
	h := c.hash([]byte(key))
	idx := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= h })
	if idx == len(c.keys) {
		idx = 0
	}
	return c.owners[c.keys[idx]]
}
