// Package scan 封装 ClamAV (clamd) 流式病毒扫描。
package scan

import (
	"context"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// streamScanner 是 go-clamd 客户端中被使用的部分，便于测试替换。
type streamScanner interface {
	ScanStream(r io.Reader, abort chan bool) (chan *clamd.ScanResult, error)
}

// ClamdScanner 通过 clamd 的 INSTREAM 命令扫描上传内容。
type ClamdScanner struct {
	client streamScanner
}

// NewClamdScanner 连接指定地址的 clamd，例如 tcp://clamav:3310。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

// Scan 返回内容是否干净。发现病毒时返回 (false, nil)，clamd 自身出错时返回 error。
func (s *ClamdScanner) Scan(ctx context.Context, r io.Reader) (bool, error) {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(r, abort)
	if err != nil {
		return false, fmt.Errorf("clamd scan stream: %w", err)
	}

	clean := true
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case result, ok := <-results:
			if !ok {
				return clean, nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				clean = false
			default:
				return false, fmt.Errorf("clamd %s: %s", result.Status, result.Description)
			}
		}
	}
}
