package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/zr8c/index_go_server/config"
)

var ErrPendingNotFound = errors.New("待确认批次不存在或已过期")

// PendingBatch 上传解析后等待用户确认的批次。
// 确认前不入库不扣费，过期自动丢弃。
type PendingBatch struct {
	UserID            int64
	SourceLabel       string
	TotalCandidate    int
	TotalValid        int
	Admissible        []string
	InadmissibleCount int
	SourceUnavailable bool
	ArchiveURL        string
	CreatedAt         time.Time
}

type pendingEntry struct {
	batch     *PendingBatch
	expiresAt time.Time
}

// PendingService 有界 TTL 键值存储。容量满时淘汰最旧条目，
// 杜绝随进程生命周期无限增长。
type PendingService struct {
	mu       sync.Mutex
	entries  map[string]*pendingEntry
	ttl      time.Duration
	capacity int
	stopChan chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

func NewPendingService(cfg *config.Config) *PendingService {
	ttl := time.Duration(cfg.Upload.PendingTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	capacity := cfg.Upload.PendingCapacity
	if capacity <= 0 {
		capacity = 1000
	}

	s := &PendingService{
		entries:  make(map[string]*pendingEntry),
		ttl:      ttl,
		capacity: capacity,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
	go s.janitor()
	return s
}

// Put 暂存批次，返回确认口令
func (s *PendingService) Put(batch *PendingBatch) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()
	if len(s.entries) >= s.capacity {
		s.evictOldestLocked()
	}

	batch.CreatedAt = s.now()
	s.entries[token] = &pendingEntry{
		batch:     batch,
		expiresAt: s.now().Add(s.ttl),
	}
	return token, nil
}

// Take 取出并移除批次（确认或取消时调用，只允许消费一次）
func (s *PendingService) Take(token string, userID int64) (*PendingBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok || s.now().After(entry.expiresAt) || entry.batch.UserID != userID {
		return nil, ErrPendingNotFound
	}
	delete(s.entries, token)
	return entry.batch, nil
}

// Peek 查看批次但不消费
func (s *PendingService) Peek(token string, userID int64) (*PendingBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok || s.now().After(entry.expiresAt) || entry.batch.UserID != userID {
		return nil, ErrPendingNotFound
	}
	return entry.batch, nil
}

// Size 当前暂存条数
func (s *PendingService) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop 停止后台清理
func (s *PendingService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *PendingService) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.purgeExpiredLocked()
			s.mu.Unlock()
		}
	}
}

func (s *PendingService) purgeExpiredLocked() {
	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}

func (s *PendingService) evictOldestLocked() {
	var oldestToken string
	var oldestAt time.Time
	for token, entry := range s.entries {
		if oldestToken == "" || entry.batch.CreatedAt.Before(oldestAt) {
			oldestToken = token
			oldestAt = entry.batch.CreatedAt
		}
	}
	if oldestToken != "" {
		delete(s.entries, oldestToken)
	}
}

func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
