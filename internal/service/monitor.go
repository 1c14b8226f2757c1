package service

import (
	"sync"
	"time"
)

// Monitor 进程内统计：错误数、业务量、最近事件时间
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	DBErrors int64
	MQErrors int64
	Rejected int64 // 校验失败或未登录被拒绝的请求

	// 业务统计
	ListingsCreated int64
	MessagesSent    int64
	WorkerProcessed int64
	WorkerFailed    int64

	// 时间统计
	LastDBError     time.Time
	LastMQError     time.Time
	LastListingTime time.Time
	LastMessageTime time.Time
	LastWorkerTime  time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

func (m *Monitor) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected++
}

func (m *Monitor) RecordListingCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListingsCreated++
	m.LastListingTime = time.Now()
}

func (m *Monitor) RecordMessageSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
	m.LastMessageTime = time.Now()
}

// RecordWorkerProcessed 记录 Worker 处理成功
func (m *Monitor) RecordWorkerProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerProcessed++
	m.LastWorkerTime = time.Now()
}

// RecordWorkerFailed 记录 Worker 处理失败
func (m *Monitor) RecordWorkerFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerFailed++
	m.LastWorkerTime = time.Now()
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	workerSuccessRate := float64(0)
	totalWorker := m.WorkerProcessed + m.WorkerFailed
	if totalWorker > 0 {
		workerSuccessRate = float64(m.WorkerProcessed) / float64(totalWorker) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"db":       m.DBErrors,
			"mq":       m.MQErrors,
			"rejected": m.Rejected,
		},
		"business": map[string]interface{}{
			"listings_created":    m.ListingsCreated,
			"messages_sent":       m.MessagesSent,
			"worker_processed":    m.WorkerProcessed,
			"worker_failed":       m.WorkerFailed,
			"worker_success_rate": workerSuccessRate,
		},
		"last_events": map[string]interface{}{
			"db_error":     m.LastDBError,
			"mq_error":     m.LastMQError,
			"last_listing": m.LastListingTime,
			"last_message": m.LastMessageTime,
			"last_worker":  m.LastWorkerTime,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors = 0
	m.MQErrors = 0
	m.Rejected = 0
	m.ListingsCreated = 0
	m.MessagesSent = 0
	m.WorkerProcessed = 0
	m.WorkerFailed = 0
}
