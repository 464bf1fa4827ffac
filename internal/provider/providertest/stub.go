// Package providertest 提供测试用的可编程 provider。
package providertest

import (
	"context"

	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/provider"
)

// Stub 按 subject 返回预置数据，并记录调用次数。
// 未预置的 subject 视为“没有数据”。
type Stub struct {
	ID string

	Meta   map[string]domain.ResultRecord
	Photos map[string]domain.PhotoSet
	Multi  []domain.ResultRecord

	// Err / Panic 按 subject 注入失败（"*" 表示所有 subject）。
	Err   map[string]error
	Panic map[string]any

	MetaCalls  int
	PhotoCalls int
	MultiCalls int
}

var _ provider.Provider = (*Stub)(nil)

func (s *Stub) Name() string { return s.ID }

func (s *Stub) SearchMetadata(_ context.Context, subject string) (domain.ResultRecord, bool, error) {
	s.MetaCalls++
	if err := s.fail(subject); err != nil {
		return domain.ResultRecord{}, false, err
	}
	r, ok := s.Meta[subject]
	return r, ok, nil
}

func (s *Stub) SearchPhotos(_ context.Context, subject string) (domain.PhotoSet, bool, error) {
	s.PhotoCalls++
	if err := s.fail(subject); err != nil {
		return domain.PhotoSet{}, false, err
	}
	p, ok := s.Photos[subject]
	return p, ok, nil
}

func (s *Stub) SearchMultiple(_ context.Context, q domain.Query, _ provider.Hints) ([]domain.ResultRecord, error) {
	s.MultiCalls++
	if err := s.fail(q.Raw); err != nil {
		return nil, err
	}
	return append([]domain.ResultRecord(nil), s.Multi...), nil
}

func (s *Stub) fail(subject string) error {
	for _, key := range []string{subject, "*"} {
		if v, ok := s.Panic[key]; ok {
			panic(v)
		}
		if err, ok := s.Err[key]; ok {
			return err
		}
	}
	return nil
}
