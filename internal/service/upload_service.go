package service

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/zr8c/index_go_server/config"
)

var (
	ErrFileTooLarge  = errors.New("文件过大")
	ErrInvalidFormat = errors.New("仅支持文本格式")
	ErrNoURLs        = errors.New("未找到有效 URL")
	ErrTooManyURLs   = errors.New("单个文件 URL 数量超过上限")
)

// Extraction 文件解析结果
type Extraction struct {
	SourceLabel    string   `json:"source_label"`
	TotalCandidate int      `json:"total_candidate"` // 非空行数
	URLs           []string `json:"urls"`            // 去重后的有效 URL，保持原始顺序
	Invalid        []string `json:"invalid"`
}

type UploadService struct {
	cfg *config.Config
}

func NewUploadService(cfg *config.Config) *UploadService {
	return &UploadService{cfg: cfg}
}

// Extract 从上传的文本文件中提取 URL：逐行解析，去重去噪
func (s *UploadService) Extract(filename string, data []byte) (*Extraction, error) {
	if s.cfg.Upload.MaxSize > 0 && int64(len(data)) > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}
	if !s.allowedExtension(filename) {
		return nil, ErrInvalidFormat
	}

	result := &Extraction{SourceLabel: filepath.Base(filename)}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result.TotalCandidate++

		if !validURL(line) {
			result.Invalid = append(result.Invalid, line)
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		result.URLs = append(result.URLs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(result.URLs) == 0 {
		return nil, ErrNoURLs
	}
	if max := s.cfg.Credit.MaxURLsPerFile; max > 0 && len(result.URLs) > max {
		return nil, ErrTooManyURLs
	}

	return result, nil
}

func (s *UploadService) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(s.cfg.Upload.AllowedExtensions) == 0 {
		return ext == ".txt"
	}
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// validURL 只接受带主机名的 http/https 绝对地址
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
