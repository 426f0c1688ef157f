package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/raisket/audittrail/internal/model"
)

// FileRuleSource loads rules from a JSON file, for single-node and dev
// deployments without a rule table. The file holds an array of rules.
type FileRuleSource struct {
	path string
}

func NewFileRuleSource(path string) *FileRuleSource {
	return &FileRuleSource{path: path}
}

func (s *FileRuleSource) ListActive(ctx context.Context) ([]*model.ComplianceRule, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var rules []*model.ComplianceRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return rules, nil
}

// StaticRuleSource serves a fixed set of rules, used in tests and as the
// empty fallback when no source is configured.
type StaticRuleSource struct {
	rules []*model.ComplianceRule
	err   error
}

func NewStaticRuleSource(rules []*model.ComplianceRule) *StaticRuleSource {
	return &StaticRuleSource{rules: rules}
}

func (s *StaticRuleSource) ListActive(ctx context.Context) ([]*model.ComplianceRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}
